package core

import "time"

// A HistoryEntry records a state change of an object in one workflow.
type HistoryEntry struct {
	Workflow string
	Action   string // empty for creation and forced state changes
	Actor    string
	State    string // state after the change
	Time     time.Time
	Comments string
}

type StateDB interface {
	ClearObject(objectID int) error
	GetState(objectID int, workflowID string) (string, error) // empty if unset
	History(objectID int, workflowID string) ([]HistoryEntry, error) // oldest first
	SetState(objectID int, entry HistoryEntry) error                 // sets entry.State in entry.Workflow and appends entry to the history
}
