package core

import (
	"context"
	"strings"
)

const (
	RootID   = 1
	RootSlug = "portal"
)

type DBObject interface {
	ID() int
	UID() string
	ParentID() int // zero for the root
	Slug() string
	PortalType() string
	Title() string
	OwnerID() int               // zero if created by the system
	PreparationWorkflow() string // empty if the object has no preparation workflow
	TsCreated() int64
}

type ObjectDB interface {
	DeleteObject(id int) error
	GetChildren(id int) ([]DBObject, error)
	GetObjectByID(id int) (DBObject, error)
	GetObjectBySlug(parentID int, slug string) (DBObject, error)
	GetObjectByUID(uid string) (DBObject, error)
	InsertObject(parentID int, slug, portalType, title string, ownerID int, prepWorkflow string) (DBObject, error)
	IsNotFound(err error) bool
}

// Object wraps DBObject and links it to its parent, which is required for permission acquisition.
type Object struct {
	DBObject
	Parent *Object // nil if the object is the root
}

// Path returns the slugs from the root (excluding) to the object, like "/clients/client-1".
// The root has the path "/".
func (o *Object) Path() string {
	var slugs []string
	for n := o; n != nil && n.Parent != nil; n = n.Parent {
		slugs = append([]string{n.Slug()}, slugs...)
	}
	return "/" + strings.Join(slugs, "/")
}

func (o *Object) String() string {
	return o.PortalType() + " " + o.Path()
}

// Root returns the root object.
func (c *CoreDB) Root() (*Object, error) {
	dbObject, err := c.ObjectDB.GetObjectByID(RootID)
	if err != nil {
		return nil, err
	}
	return &Object{DBObject: dbObject}, nil
}

// GetObject loads an object and all of its ancestors.
func (c *CoreDB) GetObject(id int) (*Object, error) {
	return c.getObject(id, 16)
}

func (c *CoreDB) getObject(id int, maxDepth int) (*Object, error) {
	if maxDepth--; maxDepth < 0 {
		return nil, newError(ErrInvalidParameter, "object %d is nested too deep", id)
	}
	dbObject, err := c.ObjectDB.GetObjectByID(id)
	if err != nil {
		return nil, c.notFound(err, "object %d", id)
	}
	var o = &Object{DBObject: dbObject}
	if dbObject.ParentID() != 0 {
		if o.Parent, err = c.getObject(dbObject.ParentID(), maxDepth); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// GetObjectByUID shadows ObjectDB.GetObjectByUID and loads the ancestors.
func (c *CoreDB) GetObjectByUID(uid string) (*Object, error) {
	dbObject, err := c.ObjectDB.GetObjectByUID(uid)
	if err != nil {
		return nil, c.notFound(err, "object %s", uid)
	}
	return c.GetObject(dbObject.ID())
}

// Open walks down from the root along the slugs of path.
func (c *CoreDB) Open(path string) (*Object, error) {
	o, err := c.Root()
	if err != nil {
		return nil, err
	}
	for _, slug := range strings.Split(strings.Trim(path, "/"), "/") {
		if slug == "" {
			continue
		}
		child, err := c.ObjectDB.GetObjectBySlug(o.ID(), slug)
		if err != nil {
			return nil, c.notFound(err, "open %s: %s", path, slug)
		}
		o = &Object{DBObject: child, Parent: o}
	}
	return o, nil
}

func (c *CoreDB) notFound(err error, format string, args ...any) error {
	if c.ObjectDB.IsNotFound(err) {
		return newError(ErrNotFound, format, args...)
	}
	return err
}

// deleteTree removes an object, its descendants, their workflow states and catalog entries.
func (c *CoreDB) deleteTree(ctx context.Context, o DBObject) error {
	children, err := c.ObjectDB.GetChildren(o.ID())
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := c.deleteTree(ctx, child); err != nil {
			return err
		}
	}
	if err := c.StateDB.ClearObject(o.ID()); err != nil {
		return err
	}
	if err := c.CatalogDB.UnindexObject(o.UID()); err != nil {
		return err
	}
	return c.ObjectDB.DeleteObject(o.ID())
}
