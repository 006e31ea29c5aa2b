package core

import (
	"context"
)

// The methods in this file manage the site structure. They don't check permissions and are meant for the site setup.

// ObjectIDs returns the slugs of the children of the root.
func (c *CoreDB) ObjectIDs(ctx context.Context) ([]string, error) {
	children, err := c.ObjectDB.GetChildren(RootID)
	if err != nil {
		return nil, err
	}
	var slugs = make([]string, len(children))
	for i, child := range children {
		slugs[i] = child.Slug()
	}
	return slugs, nil
}

// DeleteObjects deletes children of the root, including their descendants.
func (c *CoreDB) DeleteObjects(ctx context.Context, slugs []string) error {
	for _, slug := range slugs {
		o, err := c.ObjectDB.GetObjectBySlug(RootID, slug)
		if err != nil {
			return c.notFound(err, "delete %s", slug)
		}
		if err := c.deleteTree(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// EnsureFolder creates a folder below the root unless a child with the slug exists.
func (c *CoreDB) EnsureFolder(ctx context.Context, slug, portalType, title string) error {
	_, err := c.ObjectDB.GetObjectBySlug(RootID, slug)
	if err == nil {
		return nil
	}
	if !c.ObjectDB.IsNotFound(err) {
		return err
	}
	root, err := c.Root()
	if err != nil {
		return err
	}
	_, err = c.insertObject(ctx, root, slug, portalType, title, 0, "")
	return err
}

// ReindexObject reindexes the object at path.
func (c *CoreDB) ReindexObject(ctx context.Context, path string) error {
	o, err := c.Open(path)
	if err != nil {
		return err
	}
	return c.Reindex(ctx, o)
}

func (c *CoreDB) SetGlobalAllow(ctx context.Context, portalType string, allow bool) error {
	return c.TypeDB.SetGlobalAllow(portalType, allow)
}

func (c *CoreDB) ListActions(ctx context.Context) ([]ControlPanelAction, error) {
	return c.ActionDB.GetAllActions()
}

func (c *CoreDB) UpdateAction(ctx context.Context, a ControlPanelAction) error {
	return c.ActionDB.UpdateAction(a)
}

// VisibleActions returns the control panel actions whose permission the acting user has on the root.
func (c *CoreDB) VisibleActions(ctx context.Context) ([]ControlPanelAction, error) {
	root, err := c.Root()
	if err != nil {
		return nil, err
	}
	all, err := c.ActionDB.GetAllActions()
	if err != nil {
		return nil, err
	}
	var visible = []ControlPanelAction{}
	for _, a := range all {
		ok, err := c.CheckPermission(ctx, a.Permission, root)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

func (c *CoreDB) ListRoleIDs(ctx context.Context) ([]string, error) {
	return c.RoleDB.GetAllRoles()
}

func (c *CoreDB) AddRole(ctx context.Context, role string) error {
	return c.RoleDB.InsertRole(role)
}

// ListGroupIDs returns the names of all groups.
func (c *CoreDB) ListGroupIDs(ctx context.Context) ([]string, error) {
	groups, err := c.GroupDB.GetAllGroups(10000, 0) // assuming there are not more than 10k groups
	if err != nil {
		return nil, err
	}
	var names = make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name()
	}
	return names, nil
}

func (c *CoreDB) AddGroup(ctx context.Context, name string, roles []string) error {
	return c.InsertGroup(name, roles)
}

// ManagePermission sets the roles which have the permission on the object at path.
func (c *CoreDB) ManagePermission(ctx context.Context, path, permission string, roles []string, acquire bool) error {
	o, err := c.Open(path)
	if err != nil {
		return err
	}
	return c.PermissionDB.SetPermissionMapping(o.ID(), permission, PermissionMapping{
		Roles:   roles,
		Acquire: acquire,
	})
}

// ManageProxy sets the proxy roles of a script of a workflow.
func (c *CoreDB) ManageProxy(ctx context.Context, workflowID, script string, roles []string) error {
	if _, err := c.GetWorkflowByID(workflowID); err != nil {
		return err
	}
	return c.ScriptDB.SetProxyRoles(workflowID, script, roles)
}

func (c *CoreDB) InstallProduct(ctx context.Context, name string) error {
	return c.ProductDB.InstallProduct(name)
}

func (c *CoreDB) InstalledProducts(ctx context.Context) ([]string, error) {
	return c.ProductDB.GetInstalledProducts()
}
