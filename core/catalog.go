package core

import (
	"context"
)

// A CatalogEntry is the indexed metadata of an object.
type CatalogEntry struct {
	UID         string `json:"uid"`
	Path        string `json:"path"`
	PortalType  string `json:"portal_type"`
	Title       string `json:"title"`
	ReviewState string `json:"review_state"`
}

type CatalogDB interface {
	IndexObject(e CatalogEntry) error // inserts or replaces
	SearchByUID(uid string) ([]CatalogEntry, error)
	UnindexObject(uid string) error
}

// Reindex updates the catalog entry of o with its current review state.
func (c *CoreDB) Reindex(ctx context.Context, o *Object) error {
	state, err := c.StateFor(ctx, o, ReviewStateVariable)
	if err != nil && !IsCode(err, CodeWorkflow) {
		return err
	}
	return c.CatalogDB.IndexObject(CatalogEntry{
		UID:         o.UID(),
		Path:        o.Path(),
		PortalType:  o.PortalType(),
		Title:       o.Title(),
		ReviewState: state,
	})
}

// SearchByUID shadows CatalogDB.SearchByUID.
func (c *CoreDB) SearchByUID(ctx context.Context, uid string) ([]CatalogEntry, error) {
	return c.CatalogDB.SearchByUID(uid)
}
