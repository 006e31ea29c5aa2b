package sqldb

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wansing/perspective-lims/core"
)

type object struct {
	id           int
	uid          string
	parentID     int
	slug         string
	portalType   string
	title        string
	ownerID      int
	prepWorkflow string
	tsCreated    int64
}

func (o *object) ID() int {
	return o.id
}

func (o *object) UID() string {
	return o.uid
}

func (o *object) ParentID() int {
	return o.parentID
}

func (o *object) Slug() string {
	return o.slug
}

func (o *object) PortalType() string {
	return o.portalType
}

func (o *object) Title() string {
	return o.title
}

func (o *object) OwnerID() int {
	return o.ownerID
}

func (o *object) PreparationWorkflow() string {
	return o.prepWorkflow
}

func (o *object) TsCreated() int64 {
	return o.tsCreated
}

const objectColumns = "id, uid, parentId, slug, portalType, title, ownerId, prepWorkflow, tsCreated"

type ObjectDB struct {
	*sql.DB
	children  *sql.Stmt
	countRoot *sql.Stmt
	delete    *sql.Stmt
	get       *sql.Stmt
	getBySlug *sql.Stmt
	getByUID  *sql.Stmt
	insert    *sql.Stmt
}

func NewObjectDB(db *sql.DB, dialect Dialect) *ObjectDB {

	createTables(db, dialect, `
		CREATE TABLE IF NOT EXISTS object (
			id {{autoincrement}},
			uid varchar(32) NOT NULL,
			parentId int(11) NOT NULL,
			slug varchar(128) NOT NULL,
			portalType varchar(64) NOT NULL,
			title varchar(255) NOT NULL,
			ownerId int(11) NOT NULL,
			prepWorkflow varchar(64) NOT NULL,
			tsCreated bigint NOT NULL,
			UNIQUE (uid),
			UNIQUE (parentId, slug)
		)`)

	var objectDB = &ObjectDB{}
	objectDB.DB = db
	objectDB.children = mustPrepare(db, "SELECT "+objectColumns+" FROM object WHERE parentId = ? ORDER BY slug")
	objectDB.countRoot = mustPrepare(db, "SELECT COUNT(*) FROM object WHERE id = ?")
	objectDB.delete = mustPrepare(db, "DELETE FROM object WHERE id = ?")
	objectDB.get = mustPrepare(db, "SELECT "+objectColumns+" FROM object WHERE id = ? LIMIT 1")
	objectDB.getBySlug = mustPrepare(db, "SELECT "+objectColumns+" FROM object WHERE parentId = ? AND slug = ? LIMIT 1")
	objectDB.getByUID = mustPrepare(db, "SELECT "+objectColumns+" FROM object WHERE uid = ? LIMIT 1")
	objectDB.insert = mustPrepare(db, "INSERT INTO object (uid, parentId, slug, portalType, title, ownerId, prepWorkflow, tsCreated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")

	if err := objectDB.ensureRoot(); err != nil {
		panic(err)
	}

	return objectDB
}

func (db *ObjectDB) ensureRoot() error {
	ok, err := exists(db.countRoot, core.RootID)
	if err != nil || ok {
		return err
	}
	_, err = db.Exec("INSERT INTO object ("+objectColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		core.RootID, newUID(), 0, core.RootSlug, "Portal", "Site", 0, "", time.Now().Unix())
	return err
}

func newUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanObject(row scanner) (*object, error) {
	var o = &object{}
	return o, row.Scan(&o.id, &o.uid, &o.parentID, &o.slug, &o.portalType, &o.title, &o.ownerID, &o.prepWorkflow, &o.tsCreated)
}

func (db *ObjectDB) DeleteObject(id int) error {
	if id == core.RootID {
		return errors.New("can't delete the root")
	}
	_, err := db.delete.Exec(id)
	return err
}

func (db *ObjectDB) GetChildren(id int) ([]core.DBObject, error) {

	rows, err := db.children.Query(id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children = []core.DBObject{}
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, o)
	}
	return children, rows.Err()
}

func (db *ObjectDB) GetObjectByID(id int) (core.DBObject, error) {
	return scanObject(db.get.QueryRow(id))
}

func (db *ObjectDB) GetObjectBySlug(parentID int, slug string) (core.DBObject, error) {
	return scanObject(db.getBySlug.QueryRow(parentID, slug))
}

func (db *ObjectDB) GetObjectByUID(uid string) (core.DBObject, error) {
	return scanObject(db.getByUID.QueryRow(uid))
}

func (db *ObjectDB) InsertObject(parentID int, slug, portalType, title string, ownerID int, prepWorkflow string) (core.DBObject, error) {
	res, err := db.insert.Exec(newUID(), parentID, slug, portalType, title, ownerID, prepWorkflow, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetObjectByID(int(id))
}

func (db *ObjectDB) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
