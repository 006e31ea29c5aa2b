package core

import (
	"errors"
	"strings"
)

type DBUser interface {
	ID() int
	Name() string // can be email address
}

type UserDB interface {
	Delete(u DBUser) error
	GetUser(id int) (DBUser, error)
	GetUserByName(name string) (DBUser, error)
	GetAllUsers(limit, offset int) ([]DBUser, error)
	InsertUser(name string) (DBUser, error)
	LoginUser(name, password string) (DBUser, error)
	SetPassword(u DBUser, password string) error
}

var ErrEmptyPassword = errors.New("refusing to set empty password")

// InsertUser shadows UserDB.InsertUser.
func (c *CoreDB) InsertUser(name string) (DBUser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrInvalidParameter, "user name can't be empty")
	}
	return c.UserDB.InsertUser(name)
}

// SetPassword shadows UserDB.SetPassword.
func (c *CoreDB) SetPassword(u DBUser, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	return c.UserDB.SetPassword(u, password)
}
