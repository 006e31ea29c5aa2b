package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// ChainResolver computes the workflow chain of an object. base is the chain configured for its portal type.
type ChainResolver func(ctx context.Context, o *Object, base []string) ([]string, error)

// GuardFunc is a guard expression. permission is the guard permission of the transition, which can be empty.
type GuardFunc func(ctx context.Context, o *Object, permission string) bool

type CoreDB struct {
	ActionDB
	CatalogDB
	GroupDB
	ObjectDB
	PermissionDB
	ProductDB
	RoleDB
	ScriptDB
	StateDB
	TypeDB
	UserDB
	SessionManager *scs.SessionManager

	Workflows      *WorkflowRegistry
	ChainResolvers map[string]ChainResolver // portal type -> resolver
	Guards         map[string]GuardFunc     // guard expression -> func
	Subscribers    []TransitionSubscriber
	Logger         *slog.Logger
}

// Init sets up the session manager and the registries. Call it after the DBs have been assigned.
func (c *CoreDB) Init(sessionStore scs.Store, cookiePath string) {

	c.SessionManager = scs.New()
	c.SessionManager.Store = sessionStore
	c.SessionManager.Cookie.Path = cookiePath + "/"
	c.SessionManager.Cookie.Persist = false
	c.SessionManager.Cookie.SameSite = http.SameSiteLaxMode
	c.SessionManager.Cookie.Secure = false // else running on localhost or behind a http proxy fails
	c.SessionManager.IdleTimeout = 12 * time.Hour
	c.SessionManager.Lifetime = 720 * time.Hour

	if c.Workflows == nil {
		c.Workflows = &WorkflowRegistry{}
	}
	if c.ChainResolvers == nil {
		c.ChainResolvers = make(map[string]ChainResolver)
	}
	if c.Guards == nil {
		c.Guards = make(map[string]GuardFunc)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Subscribe adds a subscriber which is notified before and after every transition.
func (c *CoreDB) Subscribe(s TransitionSubscriber) {
	c.Subscribers = append(c.Subscribers, s)
}

// ValidateGuards returns an error if a transition references an unregistered guard expression.
func (c *CoreDB) ValidateGuards() error {
	for expr := range c.Workflows.GuardExprs() {
		if _, ok := c.Guards[expr]; !ok {
			return fmt.Errorf("guard expression %q is not registered", expr)
		}
	}
	return nil
}
