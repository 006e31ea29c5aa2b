package sqldb

import (
	"database/sql"
	"strings"

	"github.com/wansing/perspective-lims/core"
)

// DefaultActions are the control panel actions of a fresh site.
var DefaultActions = []core.ControlPanelAction{
	{ID: "UsersGroups", Title: "Users and Groups", Category: "controlpanel_core", Permission: core.ManagePortal},
	{ID: "UsersGroups2", Title: "Groups", Category: "controlpanel_core", Permission: core.ManagePortal},
	{ID: "MailHost", Title: "Mail", Category: "controlpanel_core", Permission: core.ManagePortal},
	{ID: "PloneReconfig", Title: "Site", Category: "controlpanel_core", Permission: core.ManagePortal},
}

// SiteDB stores content types, control panel actions, script proxy roles and installed products.
type SiteDB struct {
	*sql.DB
	actions       *sql.Stmt
	countAction   *sql.Stmt
	countType     *sql.Stmt
	countProduct  *sql.Stmt
	getProxy      *sql.Stmt
	getType       *sql.Stmt
	insertAction  *sql.Stmt
	insertProduct *sql.Stmt
	insertProxy   *sql.Stmt
	insertType    *sql.Stmt
	deleteProxy   *sql.Stmt
	products      *sql.Stmt
	updateAction  *sql.Stmt
	updateType    *sql.Stmt
}

func NewSiteDB(db *sql.DB, dialect Dialect) *SiteDB {

	createTables(db, dialect, `
		CREATE TABLE IF NOT EXISTS content_type (
			name varchar(64) NOT NULL,
			globalAllow tinyint(1) NOT NULL,
			PRIMARY KEY (name)
		)`, `
		CREATE TABLE IF NOT EXISTS controlpanel_action (
			id varchar(64) NOT NULL,
			title varchar(128) NOT NULL,
			category varchar(64) NOT NULL,
			permission varchar(128) NOT NULL,
			PRIMARY KEY (id)
		)`, `
		CREATE TABLE IF NOT EXISTS script_proxy (
			workflowId varchar(64) NOT NULL,
			script varchar(64) NOT NULL,
			roles varchar(255) NOT NULL, /* comma-separated */
			PRIMARY KEY (workflowId, script)
		)`, `
		CREATE TABLE IF NOT EXISTS product (
			name varchar(128) NOT NULL,
			PRIMARY KEY (name)
		)`)

	var siteDB = &SiteDB{}
	siteDB.DB = db
	siteDB.actions = mustPrepare(db, "SELECT id, title, category, permission FROM controlpanel_action ORDER BY id")
	siteDB.countAction = mustPrepare(db, "SELECT COUNT(*) FROM controlpanel_action WHERE id = ?")
	siteDB.countProduct = mustPrepare(db, "SELECT COUNT(*) FROM product WHERE name = ?")
	siteDB.countType = mustPrepare(db, "SELECT COUNT(*) FROM content_type WHERE name = ?")
	siteDB.deleteProxy = mustPrepare(db, "DELETE FROM script_proxy WHERE workflowId = ? AND script = ?")
	siteDB.getProxy = mustPrepare(db, "SELECT roles FROM script_proxy WHERE workflowId = ? AND script = ? LIMIT 1")
	siteDB.getType = mustPrepare(db, "SELECT globalAllow FROM content_type WHERE name = ? LIMIT 1")
	siteDB.insertAction = mustPrepare(db, "INSERT INTO controlpanel_action (id, title, category, permission) VALUES (?, ?, ?, ?)")
	siteDB.insertProduct = mustPrepare(db, "INSERT INTO product (name) VALUES (?)")
	siteDB.insertProxy = mustPrepare(db, "INSERT INTO script_proxy (workflowId, script, roles) VALUES (?, ?, ?)")
	siteDB.insertType = mustPrepare(db, "INSERT INTO content_type (name, globalAllow) VALUES (?, ?)")
	siteDB.products = mustPrepare(db, "SELECT name FROM product ORDER BY name")
	siteDB.updateAction = mustPrepare(db, "UPDATE controlpanel_action SET title = ?, category = ?, permission = ? WHERE id = ?")
	siteDB.updateType = mustPrepare(db, "UPDATE content_type SET globalAllow = ? WHERE name = ?")

	if err := siteDB.seedActions(); err != nil {
		panic(err)
	}

	return siteDB
}

func (db *SiteDB) seedActions() error {
	actions, err := db.GetAllActions()
	if err != nil || len(actions) > 0 {
		return err
	}
	for _, a := range DefaultActions {
		if _, err := db.insertAction.Exec(a.ID, a.Title, a.Category, a.Permission); err != nil {
			return err
		}
	}
	return nil
}

func (db *SiteDB) GetContentType(name string) (core.ContentType, error) {
	var t = core.ContentType{
		Name:        name,
		GlobalAllow: true,
	}
	err := db.getType.QueryRow(name).Scan(&t.GlobalAllow)
	if err == sql.ErrNoRows {
		return t, nil
	}
	return t, err
}

func (db *SiteDB) SetGlobalAllow(name string, allow bool) error {
	ok, err := exists(db.countType, name)
	if err != nil {
		return err
	}
	if ok {
		_, err = db.updateType.Exec(allow, name)
	} else {
		_, err = db.insertType.Exec(name, allow)
	}
	return err
}

func (db *SiteDB) GetAllActions() ([]core.ControlPanelAction, error) {

	rows, err := db.actions.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions = []core.ControlPanelAction{}
	for rows.Next() {
		var a core.ControlPanelAction
		if err = rows.Scan(&a.ID, &a.Title, &a.Category, &a.Permission); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// UpdateAction replaces the action with the same ID, or adds it.
func (db *SiteDB) UpdateAction(a core.ControlPanelAction) error {
	ok, err := exists(db.countAction, a.ID)
	if err != nil {
		return err
	}
	if ok {
		_, err = db.updateAction.Exec(a.Title, a.Category, a.Permission, a.ID)
	} else {
		_, err = db.insertAction.Exec(a.ID, a.Title, a.Category, a.Permission)
	}
	return err
}

// GetProxyRoles returns nil if no proxy roles are set.
func (db *SiteDB) GetProxyRoles(workflowID, script string) ([]string, error) {
	var roles string
	err := db.getProxy.QueryRow(workflowID, script).Scan(&roles)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if roles == "" {
		return []string{}, nil
	}
	return strings.Split(roles, ","), nil
}

func (db *SiteDB) SetProxyRoles(workflowID, script string, roles []string) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	if _, err = tx.Stmt(db.deleteProxy).Exec(workflowID, script); err != nil {
		tx.Rollback()
		return err
	}

	if _, err = tx.Stmt(db.insertProxy).Exec(workflowID, script, strings.Join(roles, ",")); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *SiteDB) GetInstalledProducts() ([]string, error) {
	rows, err := db.products.Query()
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// InstallProduct records a product as installed. Installing it again is a no-op.
func (db *SiteDB) InstallProduct(name string) error {
	ok, err := exists(db.countProduct, name)
	if err != nil || ok {
		return err
	}
	_, err = db.insertProduct.Exec(name)
	return err
}
