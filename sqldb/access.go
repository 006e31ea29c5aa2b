package sqldb

import (
	"database/sql"

	"github.com/wansing/perspective-lims/core"
)

// AccessDB stores roles and permission mappings.
type AccessDB struct {
	*sql.DB
	countRole     *sql.Stmt
	countSetting  *sql.Stmt
	deleteRoles   *sql.Stmt
	getRoles      *sql.Stmt
	getSetting    *sql.Stmt
	insertRole    *sql.Stmt
	insertSetting *sql.Stmt
	mapRole       *sql.Stmt
	updateSetting *sql.Stmt
	allRoles      *sql.Stmt
}

func NewAccessDB(db *sql.DB, dialect Dialect) *AccessDB {

	createTables(db, dialect, `
		CREATE TABLE IF NOT EXISTS role (
			name varchar(64) NOT NULL,
			PRIMARY KEY (name)
		)`, `
		CREATE TABLE IF NOT EXISTS permission_setting (
			objectId int(11) NOT NULL,
			permission varchar(128) NOT NULL,
			acquire tinyint(1) NOT NULL,
			PRIMARY KEY (objectId, permission)
		)`, `
		CREATE TABLE IF NOT EXISTS permission_role (
			objectId int(11) NOT NULL,
			permission varchar(128) NOT NULL,
			role varchar(64) NOT NULL,
			PRIMARY KEY (objectId, permission, role)
		)`)

	var accessDB = &AccessDB{}
	accessDB.DB = db
	accessDB.allRoles = mustPrepare(db, "SELECT name FROM role ORDER BY name")
	accessDB.countRole = mustPrepare(db, "SELECT COUNT(*) FROM role WHERE name = ?")
	accessDB.countSetting = mustPrepare(db, "SELECT COUNT(*) FROM permission_setting WHERE objectId = ? AND permission = ?")
	accessDB.deleteRoles = mustPrepare(db, "DELETE FROM permission_role WHERE objectId = ? AND permission = ?")
	accessDB.getRoles = mustPrepare(db, "SELECT role FROM permission_role WHERE objectId = ? AND permission = ? ORDER BY role")
	accessDB.getSetting = mustPrepare(db, "SELECT acquire FROM permission_setting WHERE objectId = ? AND permission = ? LIMIT 1")
	accessDB.insertRole = mustPrepare(db, "INSERT INTO role (name) VALUES (?)")
	accessDB.insertSetting = mustPrepare(db, "INSERT INTO permission_setting (objectId, permission, acquire) VALUES (?, ?, ?)")
	accessDB.mapRole = mustPrepare(db, "INSERT INTO permission_role (objectId, permission, role) VALUES (?, ?, ?)")
	accessDB.updateSetting = mustPrepare(db, "UPDATE permission_setting SET acquire = ? WHERE objectId = ? AND permission = ?")

	for _, role := range core.BuiltinRoles {
		if err := accessDB.InsertRole(role); err != nil {
			panic(err)
		}
	}

	return accessDB
}

func (db *AccessDB) GetAllRoles() ([]string, error) {
	rows, err := db.allRoles.Query()
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// InsertRole adds a role unless it exists.
func (db *AccessDB) InsertRole(name string) error {
	ok, err := exists(db.countRole, name)
	if err != nil || ok {
		return err
	}
	_, err = db.insertRole.Exec(name)
	return err
}

func (db *AccessDB) GetPermissionMapping(objectID int, permission string) (core.PermissionMapping, bool, error) {

	var acquire bool
	err := db.getSetting.QueryRow(objectID, permission).Scan(&acquire)
	if err == sql.ErrNoRows {
		return core.PermissionMapping{}, false, nil
	}
	if err != nil {
		return core.PermissionMapping{}, false, err
	}

	rows, err := db.getRoles.Query(objectID, permission)
	if err != nil {
		return core.PermissionMapping{}, false, err
	}
	roles, err := scanStrings(rows)
	if err != nil {
		return core.PermissionMapping{}, false, err
	}

	return core.PermissionMapping{
		Roles:   roles,
		Acquire: acquire,
	}, true, nil
}

// SetPermissionMapping replaces the mapping of the permission on the object.
func (db *AccessDB) SetPermissionMapping(objectID int, permission string, m core.PermissionMapping) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	var count int
	if err = tx.Stmt(db.countSetting).QueryRow(objectID, permission).Scan(&count); err != nil {
		tx.Rollback()
		return err
	}

	if count > 0 {
		_, err = tx.Stmt(db.updateSetting).Exec(m.Acquire, objectID, permission)
	} else {
		_, err = tx.Stmt(db.insertSetting).Exec(objectID, permission, m.Acquire)
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	if _, err = tx.Stmt(db.deleteRoles).Exec(objectID, permission); err != nil {
		tx.Rollback()
		return err
	}

	var mapRole = tx.Stmt(db.mapRole)
	var seen = make(map[string]struct{})
	for _, role := range m.Roles {
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		if _, err = mapRole.Exec(objectID, permission, role); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
