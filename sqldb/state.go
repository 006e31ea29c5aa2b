package sqldb

import (
	"database/sql"
	"time"

	"github.com/wansing/perspective-lims/core"
)

type StateDB struct {
	*sql.DB
	clearHistory *sql.Stmt
	clearStates  *sql.Stmt
	count        *sql.Stmt
	get          *sql.Stmt
	history      *sql.Stmt
	insert       *sql.Stmt
	push         *sql.Stmt
	update       *sql.Stmt
}

func NewStateDB(db *sql.DB, dialect Dialect) *StateDB {

	createTables(db, dialect, `
		CREATE TABLE IF NOT EXISTS workflow_state (
			objectId int(11) NOT NULL,
			workflowId varchar(64) NOT NULL,
			state varchar(64) NOT NULL,
			PRIMARY KEY (objectId, workflowId)
		)`, `
		CREATE TABLE IF NOT EXISTS workflow_history (
			id {{autoincrement}},
			objectId int(11) NOT NULL,
			workflowId varchar(64) NOT NULL,
			action varchar(64) NOT NULL,
			actor varchar(128) NOT NULL,
			state varchar(64) NOT NULL,
			ts bigint NOT NULL, /* unix nanoseconds */
			comments text NOT NULL
		)`)

	var stateDB = &StateDB{}
	stateDB.DB = db
	stateDB.clearHistory = mustPrepare(db, "DELETE FROM workflow_history WHERE objectId = ?")
	stateDB.clearStates = mustPrepare(db, "DELETE FROM workflow_state WHERE objectId = ?")
	stateDB.count = mustPrepare(db, "SELECT COUNT(*) FROM workflow_state WHERE objectId = ? AND workflowId = ?")
	stateDB.get = mustPrepare(db, "SELECT state FROM workflow_state WHERE objectId = ? AND workflowId = ? LIMIT 1")
	stateDB.history = mustPrepare(db, "SELECT action, actor, state, ts, comments FROM workflow_history WHERE objectId = ? AND workflowId = ? ORDER BY id")
	stateDB.insert = mustPrepare(db, "INSERT INTO workflow_state (objectId, workflowId, state) VALUES (?, ?, ?)")
	stateDB.push = mustPrepare(db, "INSERT INTO workflow_history (objectId, workflowId, action, actor, state, ts, comments) VALUES (?, ?, ?, ?, ?, ?, ?)")
	stateDB.update = mustPrepare(db, "UPDATE workflow_state SET state = ? WHERE objectId = ? AND workflowId = ?")
	return stateDB
}

func (db *StateDB) ClearObject(objectID int) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	if _, err = tx.Stmt(db.clearStates).Exec(objectID); err != nil {
		tx.Rollback()
		return err
	}

	if _, err = tx.Stmt(db.clearHistory).Exec(objectID); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *StateDB) GetState(objectID int, workflowID string) (string, error) {
	var state string
	err := db.get.QueryRow(objectID, workflowID).Scan(&state)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return state, err
}

func (db *StateDB) History(objectID int, workflowID string) ([]core.HistoryEntry, error) {

	rows, err := db.history.Query(objectID, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries = []core.HistoryEntry{}
	for rows.Next() {
		var e = core.HistoryEntry{Workflow: workflowID}
		var ts int64
		if err := rows.Scan(&e.Action, &e.Actor, &e.State, &ts, &e.Comments); err != nil {
			return nil, err
		}
		e.Time = time.Unix(0, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (db *StateDB) SetState(objectID int, entry core.HistoryEntry) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	var count int
	if err = tx.Stmt(db.count).QueryRow(objectID, entry.Workflow).Scan(&count); err != nil {
		tx.Rollback()
		return err
	}

	if count > 0 {
		_, err = tx.Stmt(db.update).Exec(entry.State, objectID, entry.Workflow)
	} else {
		_, err = tx.Stmt(db.insert).Exec(objectID, entry.Workflow, entry.State)
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	if _, err = tx.Stmt(db.push).Exec(objectID, entry.Workflow, entry.Action, entry.Actor, entry.State, entry.Time.UnixNano(), entry.Comments); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
