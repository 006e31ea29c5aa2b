package workflow

import (
	"context"

	"github.com/wansing/perspective-lims/core"
)

type fakeObject struct {
	uid          string
	portalType   string
	prepWorkflow string
}

func (o *fakeObject) ID() int                     { return 2 }
func (o *fakeObject) UID() string                 { return o.uid }
func (o *fakeObject) ParentID() int               { return core.RootID }
func (o *fakeObject) Slug() string                { return o.uid }
func (o *fakeObject) PortalType() string          { return o.portalType }
func (o *fakeObject) Title() string               { return o.uid }
func (o *fakeObject) OwnerID() int                { return 0 }
func (o *fakeObject) PreparationWorkflow() string { return o.prepWorkflow }
func (o *fakeObject) TsCreated() int64            { return 0 }

func newObject(uid, portalType string) *core.Object {
	return &core.Object{DBObject: &fakeObject{uid: uid, portalType: portalType}}
}

type stateChange struct {
	workflow string
	state    string
}

type fakeTool struct {
	chain       []string
	workflows   map[string]*core.Workflow
	states      map[string]string // state variable -> state
	stateErr    error
	history     []core.HistoryEntry
	historyErr  error
	transitions []*core.Transition
	doErr       error
	performed   []string
	changes     []stateChange
	proxyRoles  map[string][]string // workflow id -> roles
}

func (t *fakeTool) ChangeState(ctx context.Context, o *core.Object, workflowID, state string) error {
	t.changes = append(t.changes, stateChange{workflowID, state})
	return nil
}

func (t *fakeTool) DoActionFor(ctx context.Context, o *core.Object, action, comments string) error {
	if t.doErr != nil {
		return t.doErr
	}
	t.performed = append(t.performed, action)
	return nil
}

func (t *fakeTool) GetTransitionsFor(ctx context.Context, o *core.Object) ([]*core.Transition, error) {
	return t.transitions, nil
}

func (t *fakeTool) GetWorkflowByID(id string) (*core.Workflow, error) {
	if w, ok := t.workflows[id]; ok {
		return w, nil
	}
	return nil, core.ErrWorkflow.Clone()
}

func (t *fakeTool) ProxyRoles(workflowID, script string) ([]string, error) {
	return t.proxyRoles[workflowID], nil
}

func (t *fakeTool) ReviewHistory(ctx context.Context, o *core.Object) ([]core.HistoryEntry, error) {
	return t.history, t.historyErr
}

func (t *fakeTool) StateFor(ctx context.Context, o *core.Object, variable string) (string, error) {
	if t.stateErr != nil {
		return "", t.stateErr
	}
	state, ok := t.states[variable]
	if !ok {
		return "", core.ErrWorkflow.Clone()
	}
	return state, nil
}

func (t *fakeTool) ToolChain(o *core.Object) []string {
	return append([]string(nil), t.chain...)
}

// fakeMembership grants the permissions in the set.
type fakeMembership map[string]bool

func (m fakeMembership) CheckPermission(ctx context.Context, permission string, o *core.Object) (bool, error) {
	return m[permission], nil
}

type fakeCatalog map[string]core.CatalogEntry // uid -> entry

func (c fakeCatalog) SearchByUID(ctx context.Context, uid string) ([]core.CatalogEntry, error) {
	if e, ok := c[uid]; ok {
		return []core.CatalogEntry{e}, nil
	}
	return nil, nil
}
