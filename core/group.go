package core

import (
	"context"
	"strings"
)

type DBGroup interface {
	ID() int
	Name() string
	HasMember(u DBUser) (bool, error)
	Members() (map[int]interface{}, error)
	Roles() ([]string, error)
}

type GroupDB interface {
	Delete(g DBGroup) error
	GetAllGroups(limit, offset int) ([]DBGroup, error)
	GetGroup(id int) (DBGroup, error)
	GetGroupByName(name string) (DBGroup, error)
	GetGroupsOf(u DBUser) ([]DBGroup, error)
	InsertGroup(name string, roles []string) error
	Join(g DBGroup, u DBUser) error
	Leave(g DBGroup, u DBUser) error
}

// InsertGroup shadows GroupDB.InsertGroup. The roles must exist.
func (c *CoreDB) InsertGroup(name string, roles []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return newError(ErrInvalidParameter, "group name can't be empty")
	}
	known, err := c.RoleDB.GetAllRoles()
	if err != nil {
		return err
	}
	for _, role := range roles {
		if !contains(known, role) {
			return newError(ErrInvalidParameter, "group %s: unknown role %s", name, role)
		}
	}
	return c.GroupDB.InsertGroup(name, roles)
}

// RolesOf returns the roles which the acting user has on o.
func (c *CoreDB) RolesOf(ctx context.Context, o *Object) ([]string, error) {

	var roles = ProxyRolesFrom(ctx)

	var u = UserFrom(ctx)
	if u == nil {
		return append(roles, Anonymous), nil
	}

	roles = append(roles, Authenticated)
	if o != nil && o.OwnerID() != 0 && o.OwnerID() == u.ID() {
		roles = append(roles, Owner)
	}

	groups, err := c.GroupDB.GetGroupsOf(u)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		groupRoles, err := g.Roles()
		if err != nil {
			return nil, err
		}
		roles = append(roles, groupRoles...)
	}
	return roles, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
