package core

import (
	"context"
)

// A PermissionMapping assigns a permission to roles on one object.
// If Acquire is set, the roles of the parent object are granted as well.
type PermissionMapping struct {
	Roles   []string
	Acquire bool
}

type PermissionDB interface {
	GetPermissionMapping(objectID int, permission string) (PermissionMapping, bool, error) // false if the object has no own mapping
	SetPermissionMapping(objectID int, permission string, m PermissionMapping) error
}

type RoleDB interface {
	GetAllRoles() ([]string, error)
	InsertRole(name string) error
}

// RolesFor returns the roles which have the permission on o.
// Objects without an own mapping acquire it from their parent. Manager has every permission.
func (c *CoreDB) RolesFor(permission string, o *Object) ([]string, error) {
	var roles []string
	for n := o; n != nil; n = n.Parent {
		m, ok, err := c.PermissionDB.GetPermissionMapping(n.ID(), permission)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		roles = append(roles, m.Roles...)
		if !m.Acquire {
			return roles, nil
		}
	}
	return append(roles, Manager), nil
}

// CheckPermission reports whether the acting user has the permission on o.
func (c *CoreDB) CheckPermission(ctx context.Context, permission string, o *Object) (bool, error) {
	allowed, err := c.RolesFor(permission, o)
	if err != nil {
		return false, err
	}
	roles, err := c.RolesOf(ctx, o)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if contains(allowed, role) {
			return true, nil
		}
	}
	return false, nil
}

// RequirePermission returns ErrUnauthorized if the acting user lacks the permission on o.
func (c *CoreDB) RequirePermission(ctx context.Context, permission string, o *Object) error {
	ok, err := c.CheckPermission(ctx, permission, o)
	if err != nil {
		return err
	}
	if !ok {
		return newError(ErrUnauthorized, "%s: permission %q required", o, permission)
	}
	return nil
}
