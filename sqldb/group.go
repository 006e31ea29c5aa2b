package sqldb

import (
	"database/sql"
	"errors"

	"github.com/wansing/perspective-lims/core"
)

type group struct {
	db            *GroupDB // required for lazy loading
	id            int
	name          string
	members       map[int]interface{} // user id => struct{}
	membersLoaded bool                // lazy loading
}

func (g *group) ID() int {
	return g.id
}

func (g *group) Name() string {
	return g.name
}

func (g *group) HasMember(u core.DBUser) (bool, error) {
	members, err := g.Members()
	if err != nil {
		return false, err
	}
	_, ok := members[u.ID()]
	return ok, nil
}

func (g *group) Members() (map[int]interface{}, error) {

	if !g.membersLoaded {

		rows, err := g.db.members.Query(g.id)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		g.members = make(map[int]interface{})
		for rows.Next() {
			var userID int
			if err = rows.Scan(&userID); err != nil {
				return nil, err
			}
			g.members[userID] = struct{}{}
		}

		g.membersLoaded = true
	}

	return g.members, nil
}

func (g *group) Roles() ([]string, error) {
	rows, err := g.db.roles.Query(g.id)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

type GroupDB struct {
	*sql.DB
	addRole    *sql.Stmt
	delete     *sql.Stmt
	deleteRole *sql.Stmt
	get        *sql.Stmt
	getAll     *sql.Stmt
	getByName  *sql.Stmt
	getOf      *sql.Stmt
	insert     *sql.Stmt
	join       *sql.Stmt
	leave      *sql.Stmt
	leaveUsers *sql.Stmt
	members    *sql.Stmt
	roles      *sql.Stmt
}

func NewGroupDB(db *sql.DB, dialect Dialect) *GroupDB {

	createTables(db, dialect, `
		CREATE TABLE IF NOT EXISTS grp (
			id {{autoincrement}},
			name varchar(64) NOT NULL,
			UNIQUE (name)
		)`, `
		CREATE TABLE IF NOT EXISTS membership (
			grp int(11) NOT NULL,
			usr int(11) NOT NULL,
			PRIMARY KEY (grp, usr)
		)`, `
		CREATE TABLE IF NOT EXISTS group_role (
			grp int(11) NOT NULL,
			role varchar(64) NOT NULL,
			PRIMARY KEY (grp, role)
		)`)

	var groupDB = &GroupDB{}
	groupDB.DB = db
	groupDB.addRole = mustPrepare(db, "INSERT INTO group_role (grp, role) VALUES (?, ?)")
	groupDB.delete = mustPrepare(db, "DELETE FROM grp WHERE id = ?")
	groupDB.deleteRole = mustPrepare(db, "DELETE FROM group_role WHERE grp = ?")
	groupDB.get = mustPrepare(db, "SELECT name FROM grp WHERE id = ? LIMIT 1")
	groupDB.getAll = mustPrepare(db, "SELECT id, name FROM grp ORDER BY name LIMIT ? OFFSET ?")
	groupDB.getByName = mustPrepare(db, "SELECT id, name FROM grp WHERE name = ? LIMIT 1")
	groupDB.getOf = mustPrepare(db, "SELECT grp.id, grp.name FROM grp, membership WHERE grp.id = membership.grp AND membership.usr = ? ORDER BY grp.name")
	groupDB.insert = mustPrepare(db, "INSERT INTO grp (name) VALUES (?)")
	groupDB.join = mustPrepare(db, "INSERT INTO membership (grp, usr) VALUES (?, ?)")
	groupDB.leave = mustPrepare(db, "DELETE FROM membership WHERE grp = ? AND usr = ?")
	groupDB.leaveUsers = mustPrepare(db, "DELETE FROM membership WHERE grp = ?")
	groupDB.members = mustPrepare(db, "SELECT usr FROM membership WHERE grp = ?")
	groupDB.roles = mustPrepare(db, "SELECT role FROM group_role WHERE grp = ? ORDER BY role")
	return groupDB
}

func (db *GroupDB) Delete(g core.DBGroup) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	for _, stmt := range []*sql.Stmt{db.leaveUsers, db.deleteRole, db.delete} {
		if _, err = tx.Stmt(stmt).Exec(g.ID()); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (db *GroupDB) GetGroup(id int) (core.DBGroup, error) {
	var g = &group{
		db: db,
		id: id,
	}
	return g, db.get.QueryRow(id).Scan(&g.name)
}

func (db *GroupDB) GetGroupByName(name string) (core.DBGroup, error) {
	var g = &group{
		db: db,
	}
	return g, db.getByName.QueryRow(name).Scan(&g.id, &g.name)
}

func (db *GroupDB) getMultiple(stmt *sql.Stmt, args ...interface{}) ([]core.DBGroup, error) {

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups = []core.DBGroup{}
	for rows.Next() {
		var g = &group{
			db: db,
		}
		if err = rows.Scan(&g.id, &g.name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (db *GroupDB) GetAllGroups(limit, offset int) ([]core.DBGroup, error) {
	return db.getMultiple(db.getAll, limit, offset)
}

func (db *GroupDB) GetGroupsOf(u core.DBUser) ([]core.DBGroup, error) {
	return db.getMultiple(db.getOf, u.ID())
}

func (db *GroupDB) InsertGroup(name string, roles []string) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	res, err := tx.Stmt(db.insert).Exec(name)
	if err != nil {
		tx.Rollback()
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return err
	}

	var addRole = tx.Stmt(db.addRole)
	for _, role := range roles {
		if _, err = addRole.Exec(id, role); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (db *GroupDB) Join(g core.DBGroup, u core.DBUser) error {

	if u.ID() == 0 {
		return errors.New("can't add all users")
	}

	if _, err := db.join.Exec(g.ID(), u.ID()); err != nil {
		return err
	}

	if gr, ok := g.(*group); ok && gr.membersLoaded {
		gr.members[u.ID()] = struct{}{}
	}
	return nil
}

func (db *GroupDB) Leave(g core.DBGroup, u core.DBUser) error {

	if u.ID() == 0 {
		return errors.New("can't remove all users")
	}

	if _, err := db.leave.Exec(g.ID(), u.ID()); err != nil {
		return err
	}

	if gr, ok := g.(*group); ok && gr.membersLoaded {
		delete(gr.members, u.ID())
	}
	return nil
}
