package sqldb

import (
	"database/sql"

	"github.com/wansing/perspective-lims/core"
)

type CatalogDB struct {
	*sql.DB
	count   *sql.Stmt
	insert  *sql.Stmt
	search  *sql.Stmt
	unindex *sql.Stmt
	update  *sql.Stmt
}

func NewCatalogDB(db *sql.DB, dialect Dialect) *CatalogDB {

	createTables(db, dialect, `
		CREATE TABLE IF NOT EXISTS catalog (
			uid varchar(32) NOT NULL,
			path varchar(1024) NOT NULL,
			portalType varchar(64) NOT NULL,
			title varchar(255) NOT NULL,
			reviewState varchar(64) NOT NULL,
			PRIMARY KEY (uid)
		)`)

	var catalogDB = &CatalogDB{}
	catalogDB.DB = db
	catalogDB.count = mustPrepare(db, "SELECT COUNT(*) FROM catalog WHERE uid = ?")
	catalogDB.insert = mustPrepare(db, "INSERT INTO catalog (uid, path, portalType, title, reviewState) VALUES (?, ?, ?, ?, ?)")
	catalogDB.search = mustPrepare(db, "SELECT uid, path, portalType, title, reviewState FROM catalog WHERE uid = ?")
	catalogDB.unindex = mustPrepare(db, "DELETE FROM catalog WHERE uid = ?")
	catalogDB.update = mustPrepare(db, "UPDATE catalog SET path = ?, portalType = ?, title = ?, reviewState = ? WHERE uid = ?")
	return catalogDB
}

func (db *CatalogDB) IndexObject(e core.CatalogEntry) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	var count int
	if err = tx.Stmt(db.count).QueryRow(e.UID).Scan(&count); err != nil {
		tx.Rollback()
		return err
	}

	if count > 0 {
		_, err = tx.Stmt(db.update).Exec(e.Path, e.PortalType, e.Title, e.ReviewState, e.UID)
	} else {
		_, err = tx.Stmt(db.insert).Exec(e.UID, e.Path, e.PortalType, e.Title, e.ReviewState)
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *CatalogDB) SearchByUID(uid string) ([]core.CatalogEntry, error) {

	rows, err := db.search.Query(uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries = []core.CatalogEntry{}
	for rows.Next() {
		var e core.CatalogEntry
		if err = rows.Scan(&e.UID, &e.Path, &e.PortalType, &e.Title, &e.ReviewState); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (db *CatalogDB) UnindexObject(uid string) error {
	_, err := db.unindex.Exec(uid)
	return err
}
