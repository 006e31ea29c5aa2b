package core

import (
	"context"
	"time"
)

// CreateObject creates a child of parent on behalf of the acting user, who needs the AddPortalContent permission on parent.
// Types whose global allow is disabled can't be created directly below the root.
func (c *CoreDB) CreateObject(ctx context.Context, parent *Object, slug, portalType, title, prepWorkflow string) (*Object, error) {

	if err := c.RequirePermission(ctx, AddPortalContent, parent); err != nil {
		return nil, err
	}

	if parent.ID() == RootID {
		ct, err := c.TypeDB.GetContentType(portalType)
		if err != nil {
			return nil, err
		}
		if !ct.GlobalAllow {
			return nil, newError(ErrInvalidParameter, "%s can't be added to the site root", portalType)
		}
	}

	if prepWorkflow != "" {
		if _, err := c.GetWorkflowByID(prepWorkflow); err != nil {
			return nil, err
		}
	}

	var ownerID = 0
	if u := UserFrom(ctx); u != nil {
		ownerID = u.ID()
	}

	return c.insertObject(ctx, parent, slug, portalType, title, ownerID, prepWorkflow)
}

// insertObject creates an object without permission checks, puts it into the initial state of each workflow in its chain,
// indexes it and notifies the subscribers about the creation.
func (c *CoreDB) insertObject(ctx context.Context, parent *Object, slug, portalType, title string, ownerID int, prepWorkflow string) (*Object, error) {

	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, newError(ErrInvalidParameter, "slug can't be empty")
	}

	dbObject, err := c.ObjectDB.InsertObject(parent.ID(), slug, portalType, title, ownerID, prepWorkflow)
	if err != nil {
		return nil, err
	}
	var o = &Object{DBObject: dbObject, Parent: parent}

	workflows, err := c.workflowsFor(ctx, o)
	if err != nil {
		return nil, err
	}

	var now = time.Now()
	for _, w := range workflows {
		if err := c.StateDB.SetState(o.ID(), HistoryEntry{
			Workflow: w.ID,
			Actor:    ActorName(ctx),
			State:    w.Initial,
			Time:     now,
		}); err != nil {
			return nil, err
		}
	}

	if err := c.Reindex(ctx, o); err != nil {
		return nil, err
	}

	for _, w := range workflows {
		var evt = TransitionEvent{
			Workflow: w,
			NewState: w.States[w.Initial],
		}
		for _, s := range c.Subscribers {
			if err := s.OnBeforeTransition(ctx, o, evt); err != nil {
				return nil, err
			}
		}
		if err := c.notifyAfter(ctx, o, evt); err != nil {
			return nil, err
		}
	}

	return o, nil
}
