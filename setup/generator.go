// Package setup configures a fresh site for the LIMS: products, site structure, roles, groups, permissions
// and the proxy roles of workflow scripts.
package setup

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-errors"
	"github.com/wansing/perspective-lims/core"
)

// Portal is the site which Generator configures. Paths are absolute, "/" is the site root.
type Portal interface {
	InstallProduct(ctx context.Context, name string) error
	ObjectIDs(ctx context.Context) ([]string, error)
	DeleteObjects(ctx context.Context, ids []string) error
	EnsureFolder(ctx context.Context, id, portalType, title string) error
	ReindexObject(ctx context.Context, path string) error
	SetGlobalAllow(ctx context.Context, portalType string, allow bool) error
	ListActions(ctx context.Context) ([]core.ControlPanelAction, error)
	UpdateAction(ctx context.Context, a core.ControlPanelAction) error
	ListRoleIDs(ctx context.Context) ([]string, error)
	AddRole(ctx context.Context, role string) error
	ListGroupIDs(ctx context.Context) ([]string, error)
	AddGroup(ctx context.Context, name string, roles []string) error
	ManagePermission(ctx context.Context, path, permission string, roles []string, acquire bool) error
	ManageProxy(ctx context.Context, workflowID, script string, roles []string) error
}

type Generator struct {
	Portal  Portal
	Profile *Profile
	Logger  *slog.Logger
}

// NewGenerator returns a Generator which applies the built-in profile.
func NewGenerator(portal Portal, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		Portal:  portal,
		Profile: DefaultProfile(),
		Logger:  logger,
	}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Run executes all steps in order and stops at the first failure. Completed steps are not rolled back.
func (g *Generator) Run(ctx context.Context) error {
	var steps = []step{
		{"installProducts", g.InstallProducts},
		{"setupPortalContent", g.SetupPortalContent},
		{"setupGroupsAndRoles", g.SetupGroupsAndRoles},
		{"setupPermissions", g.SetupPermissions},
		{"setupProxyRoles", g.SetupProxyRoles},
	}
	for i, s := range steps {
		g.Logger.Info("running setup step", "step", s.name)
		if err := s.run(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryHandler, "setup step "+s.name).
				WithTextCode("SETUP_STEP_FAILED").
				WithMetadata(map[string]any{
					"step_index": i,
					"step_name":  s.name,
				})
		}
	}
	g.Logger.Info("setup complete")
	return nil
}

func (g *Generator) InstallProducts(ctx context.Context) error {
	for _, product := range g.Profile.Products {
		if err := g.Portal.InstallProduct(ctx, product); err != nil {
			return err
		}
	}
	return nil
}

// SetupPortalContent deletes default content, reindexes the LIMS folders, restricts where some types can be
// added and moves control panel actions into the LIMS category.
func (g *Generator) SetupPortalContent(ctx context.Context) error {

	existing, err := g.Portal.ObjectIDs(ctx)
	if err != nil {
		return err
	}
	var del []string
	for _, id := range g.Profile.Delete {
		if contains(existing, id) {
			del = append(del, id)
		}
	}
	if len(del) > 0 {
		if err := g.Portal.DeleteObjects(ctx, del); err != nil {
			return err
		}
		g.Logger.Debug("deleted default content", "ids", del)
	}

	for _, f := range g.Profile.Folders {
		if err := g.Portal.EnsureFolder(ctx, f.ID, f.Type, f.Title); err != nil {
			return err
		}
		if err := g.Portal.ReindexObject(ctx, "/"+f.ID); err != nil {
			return err
		}
	}

	for _, portalType := range g.Profile.DisallowGlobal {
		if err := g.Portal.SetGlobalAllow(ctx, portalType, false); err != nil {
			return err
		}
	}

	actions, err := g.Portal.ListActions(ctx)
	if err != nil {
		return err
	}
	var move = g.Profile.MoveActions
	for _, a := range actions {
		if !contains(move.IDs, a.ID) {
			continue
		}
		a.Category = move.Category
		a.Permission = move.Permission
		if err := g.Portal.UpdateAction(ctx, a); err != nil {
			return err
		}
	}

	return nil
}

// SetupGroupsAndRoles adds the roles and groups which don't exist yet. Existing groups keep their roles.
func (g *Generator) SetupGroupsAndRoles(ctx context.Context) error {

	roles, err := g.Portal.ListRoleIDs(ctx)
	if err != nil {
		return err
	}
	for _, role := range g.Profile.Roles {
		if contains(roles, role) {
			continue
		}
		if err := g.Portal.AddRole(ctx, role); err != nil {
			return err
		}
	}

	groups, err := g.Portal.ListGroupIDs(ctx)
	if err != nil {
		return err
	}
	for _, group := range g.Profile.Groups {
		if contains(groups, group.Name) {
			continue
		}
		if err := g.Portal.AddGroup(ctx, group.Name, group.Roles); err != nil {
			return err
		}
	}

	return nil
}

// SetupPermissions assigns the permission mappings. Each folder is reindexed after its mappings have been set.
func (g *Generator) SetupPermissions(ctx context.Context) error {
	for _, pp := range g.Profile.Permissions {
		for _, m := range pp.Mappings {
			if err := g.Portal.ManagePermission(ctx, pp.Path, m.Permission, m.Roles, m.Acquire); err != nil {
				return err
			}
		}
		if pp.Path != "/" {
			if err := g.Portal.ReindexObject(ctx, pp.Path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Generator) SetupProxyRoles(ctx context.Context) error {
	var p = g.Profile.Proxies
	for _, workflowID := range p.Workflows {
		if err := g.Portal.ManageProxy(ctx, workflowID, p.Script, p.Roles); err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
