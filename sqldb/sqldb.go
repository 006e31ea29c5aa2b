// Package sqldb implements the database interfaces of package core with database/sql.
package sqldb

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/wansing/perspective-lims/core"
)

// Dialect holds the few SQL differences between the supported drivers.
type Dialect struct {
	Driver        string
	AutoIncrement string // column definition of an auto-incrementing primary key
}

var (
	SQLite3 = Dialect{Driver: "sqlite3", AutoIncrement: "INTEGER PRIMARY KEY"}
	MySQL   = Dialect{Driver: "mysql", AutoIncrement: "INTEGER PRIMARY KEY AUTO_INCREMENT"}
)

func DialectOf(driver string) (Dialect, error) {
	switch driver {
	case SQLite3.Driver:
		return SQLite3, nil
	case MySQL.Driver:
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("unknown database backend: %s", driver)
	}
}

// createTables executes each statement on its own, as MySQL rejects multiple statements by default.
// Every statement may contain the placeholder {{autoincrement}}.
func createTables(db *sql.DB, dialect Dialect, statements ...string) {
	for _, stmt := range statements {
		stmt = strings.ReplaceAll(stmt, "{{autoincrement}}", dialect.AutoIncrement)
		if _, err := db.Exec(stmt); err != nil {
			panic(fmt.Errorf("creating table: %w", err))
		}
	}
}

func mustPrepare(db *sql.DB, query string) *sql.Stmt {
	stmt, err := db.Prepare(query)
	if err != nil {
		panic(fmt.Errorf("preparing %q: %w", query, err))
	}
	return stmt
}

// exists runs a counting query and reports whether the count is positive.
func exists(stmt *sql.Stmt, args ...interface{}) (bool, error) {
	var count int
	if err := stmt.QueryRow(args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var result = []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Assign creates the tables and sets every database interface of c.
func Assign(c *core.CoreDB, db *sql.DB, dialect Dialect) {
	var accessDB = NewAccessDB(db, dialect)
	var siteDB = NewSiteDB(db, dialect)
	c.ActionDB = siteDB
	c.CatalogDB = NewCatalogDB(db, dialect)
	c.GroupDB = NewGroupDB(db, dialect)
	c.ObjectDB = NewObjectDB(db, dialect)
	c.PermissionDB = accessDB
	c.ProductDB = siteDB
	c.RoleDB = accessDB
	c.ScriptDB = siteDB
	c.StateDB = NewStateDB(db, dialect)
	c.TypeDB = siteDB
	c.UserDB = NewUserDB(db, dialect)
}
