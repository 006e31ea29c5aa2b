package core_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/perspective-lims/config"
	"github.com/wansing/perspective-lims/core"
	"github.com/wansing/perspective-lims/logging"
	"github.com/wansing/perspective-lims/sqldb"
	"github.com/wansing/perspective-lims/sqldb/sqlite3"
)

const (
	sampleWorkflow = "bika_sample_workflow"
	prepWorkflow   = "bika_sampleprep_workflow"
	receiveSample  = "BIKA: Receive Sample"
)

func newTestCore(t *testing.T) *core.CoreDB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "lims.sqlite3")+"?_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var c = &core.CoreDB{Logger: logging.NewNop()}
	sqldb.Assign(c, db, sqldb.SQLite3)

	c.Workflows, err = config.Default().LoadWorkflows()
	require.NoError(t, err)

	store, err := sqlite3.NewSessionStore(db)
	require.NoError(t, err)
	c.Init(store, "")
	return c
}

// withPermissionGuard registers a guard expression which checks the guard permission only.
func withPermissionGuard(c *core.CoreDB) {
	c.Guards["basic"] = func(ctx context.Context, o *core.Object, permission string) bool {
		ok, _ := c.CheckPermission(ctx, permission, o)
		return ok
	}
}

func asManager() context.Context {
	return core.WithProxyRoles(context.Background(), []string{core.Manager})
}

func createSample(t *testing.T, c *core.CoreDB, slug, prep string) *core.Object {
	t.Helper()
	var ctx = asManager()
	clients, err := c.Open("/clients")
	if err != nil {
		root, err := c.Root()
		require.NoError(t, err)
		clients, err = c.CreateObject(ctx, root, "clients", "ClientFolder", "Clients", "")
		require.NoError(t, err)
	}
	o, err := c.CreateObject(ctx, clients, slug, "Sample", slug, prep)
	require.NoError(t, err)
	return o
}

func TestCreateObjectInitialStates(t *testing.T) {
	var c = newTestCore(t)
	var ctx = context.Background()

	o := createSample(t, c, "S-1", prepWorkflow)
	assert.Equal(t, "/clients/s-1", o.Path())
	assert.Equal(t, prepWorkflow, o.PreparationWorkflow())

	state, err := c.StateFor(ctx, o, core.ReviewStateVariable)
	require.NoError(t, err)
	assert.Equal(t, "sample_due", state)

	state, err = c.StateFor(ctx, o, "cancellation_state")
	require.NoError(t, err)
	assert.Equal(t, "active", state)

	_, err = c.StateFor(ctx, o, "inactive_state")
	assert.True(t, core.IsCode(err, core.CodeWorkflow))

	history, err := c.ReviewHistory(ctx, o)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "system", history[0].Actor)
	assert.Equal(t, "", history[0].Action)

	entries, err := c.SearchByUID(ctx, o.UID())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sample_due", entries[0].ReviewState)
	assert.Equal(t, "/clients/s-1", entries[0].Path)

	reopened, err := c.GetObjectByUID(o.UID())
	require.NoError(t, err)
	assert.Equal(t, o.Path(), reopened.Path())
}

func TestCreateObjectChecks(t *testing.T) {
	var c = newTestCore(t)
	root, err := c.Root()
	require.NoError(t, err)

	_, err = c.CreateObject(context.Background(), root, "clients", "ClientFolder", "Clients", "")
	assert.True(t, core.IsCode(err, core.CodeUnauthorized))

	require.NoError(t, c.SetGlobalAllow(asManager(), "Person", false))
	_, err = c.CreateObject(asManager(), root, "jane", "Person", "Jane", "")
	assert.True(t, core.IsCode(err, core.CodeInvalidParameter))

	_, err = c.CreateObject(asManager(), root, "s1", "Sample", "S1", "no_such_workflow")
	assert.True(t, core.IsCode(err, core.CodeWorkflow))

	_, err = c.CreateObject(asManager(), root, "  ", "Sample", "S1", "")
	assert.True(t, core.IsCode(err, core.CodeInvalidParameter))
}

func TestOpen(t *testing.T) {
	var c = newTestCore(t)
	createSample(t, c, "s1", "")

	root, err := c.Open("/")
	require.NoError(t, err)
	assert.Equal(t, core.RootID, root.ID())
	assert.Equal(t, "/", root.Path())

	o, err := c.Open("/clients/s1/")
	require.NoError(t, err)
	assert.Equal(t, "Sample", o.PortalType())
	assert.Equal(t, "clients", o.Parent.Slug())

	_, err = c.Open("/clients/s2")
	assert.True(t, core.IsCode(err, core.CodeNotFound))
}

func TestPermissionAcquisition(t *testing.T) {
	var c = newTestCore(t)
	o := createSample(t, c, "s1", "")
	var clients = o.Parent
	var ctx = asManager()

	roles, err := c.RolesFor(core.View, o)
	require.NoError(t, err)
	assert.Equal(t, []string{core.Manager}, roles) // unmapped

	require.NoError(t, c.ManagePermission(ctx, "/", core.View, []string{core.Member}, false))
	roles, err = c.RolesFor(core.View, o)
	require.NoError(t, err)
	assert.Equal(t, []string{core.Member}, roles)

	require.NoError(t, c.ManagePermission(ctx, clients.Path(), core.View, []string{core.Owner}, true))
	roles, err = c.RolesFor(core.View, o)
	require.NoError(t, err)
	assert.Equal(t, []string{core.Owner, core.Member}, roles)

	require.NoError(t, c.ManagePermission(ctx, "/", core.View, []string{core.Member}, true))
	roles, err = c.RolesFor(core.View, o)
	require.NoError(t, err)
	assert.Equal(t, []string{core.Owner, core.Member, core.Manager}, roles)
}

func TestCheckPermission(t *testing.T) {
	var c = newTestCore(t)
	o := createSample(t, c, "s1", "")

	require.NoError(t, c.AddRole(asManager(), "LabClerk"))
	require.NoError(t, c.InsertGroup("labclerks", []string{"LabClerk"}))
	assert.Error(t, c.InsertGroup("bogus", []string{"NoSuchRole"}))
	require.NoError(t, c.ManagePermission(asManager(), "/", receiveSample, []string{"LabClerk"}, false))

	alice, err := c.InsertUser("alice")
	require.NoError(t, err)
	var ctx = core.WithUser(context.Background(), alice)

	ok, err := c.CheckPermission(ctx, receiveSample, o)
	require.NoError(t, err)
	assert.False(t, ok)

	group, err := c.GetGroupByName("labclerks")
	require.NoError(t, err)
	require.NoError(t, c.Join(group, alice))

	ok, err = c.CheckPermission(ctx, receiveSample, o)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CheckPermission(context.Background(), receiveSample, o)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, core.IsCode(c.RequirePermission(context.Background(), receiveSample, o), core.CodeUnauthorized))
}

func TestOwnerRole(t *testing.T) {
	var c = newTestCore(t)
	alice, err := c.InsertUser("alice")
	require.NoError(t, err)

	var ctx = core.WithProxyRoles(core.WithUser(context.Background(), alice), []string{core.Manager})
	root, err := c.Root()
	require.NoError(t, err)
	o, err := c.CreateObject(ctx, root, "mine", "Folder", "Mine", "")
	require.NoError(t, err)
	assert.Equal(t, alice.ID(), o.OwnerID())

	roles, err := c.RolesOf(core.WithUser(context.Background(), alice), o)
	require.NoError(t, err)
	assert.Equal(t, []string{core.Authenticated, core.Owner}, roles)

	roles, err = c.RolesOf(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, []string{core.Anonymous}, roles)
}

func TestGetTransitionsFor(t *testing.T) {
	var c = newTestCore(t)
	withPermissionGuard(c)
	o := createSample(t, c, "s1", "")

	transitions, err := c.GetTransitionsFor(asManager(), o)
	require.NoError(t, err)
	var ids []string
	for _, tr := range transitions {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"receive", "prepare", "cancel"}, ids)

	transitions, err = c.GetTransitionsFor(context.Background(), o)
	require.NoError(t, err)
	assert.Empty(t, transitions)
}

func TestUnregisteredGuardDenies(t *testing.T) {
	var c = newTestCore(t)
	o := createSample(t, c, "s1", "")

	err := c.DoActionFor(asManager(), o, "receive", "")
	assert.True(t, core.IsCode(err, core.CodeInvalidParameter))
	assert.Error(t, c.ValidateGuards())
}

func TestDoActionFor(t *testing.T) {
	var c = newTestCore(t)
	withPermissionGuard(c)
	require.NoError(t, c.ValidateGuards())
	o := createSample(t, c, "s1", "")

	alice, err := c.InsertUser("alice")
	require.NoError(t, err)
	var ctx = core.WithProxyRoles(core.WithUser(context.Background(), alice), []string{core.Manager})

	require.NoError(t, c.DoActionFor(ctx, o, "receive", "arrived"))

	state, err := c.StateFor(ctx, o, core.ReviewStateVariable)
	require.NoError(t, err)
	assert.Equal(t, "sample_received", state)

	history, err := c.ReviewHistory(ctx, o)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "receive", history[1].Action)
	assert.Equal(t, "alice", history[1].Actor)
	assert.Equal(t, "arrived", history[1].Comments)

	entries, err := c.SearchByUID(ctx, o.UID())
	require.NoError(t, err)
	assert.Equal(t, "sample_received", entries[0].ReviewState)

	err = c.DoActionFor(ctx, o, "publish", "")
	assert.True(t, core.IsCode(err, core.CodeInvalidParameter))

	err = c.DoActionFor(core.WithUser(context.Background(), alice), o, "submit", "")
	assert.True(t, core.IsCode(err, core.CodeInvalidParameter))
}

type recorder struct {
	before, after []string
	veto          error
	afterErr      error
}

func (r *recorder) OnBeforeTransition(ctx context.Context, o *core.Object, evt core.TransitionEvent) error {
	r.before = append(r.before, eventName(evt))
	if !evt.Creation() {
		return r.veto
	}
	return nil
}

func (r *recorder) OnAfterTransition(ctx context.Context, o *core.Object, evt core.TransitionEvent) error {
	r.after = append(r.after, eventName(evt))
	if !evt.Creation() {
		return r.afterErr
	}
	return nil
}

func eventName(evt core.TransitionEvent) string {
	if evt.Creation() {
		return "create:" + evt.Workflow.ID
	}
	return evt.Transition.ID
}

func TestSubscribers(t *testing.T) {
	var c = newTestCore(t)
	withPermissionGuard(c)
	var r = &recorder{}
	c.Subscribe(r)

	o := createSample(t, c, "s1", "")
	assert.Contains(t, r.after, "create:"+sampleWorkflow)
	assert.Contains(t, r.after, "create:bika_cancellation_workflow")

	require.NoError(t, c.DoActionFor(asManager(), o, "receive", ""))
	assert.Equal(t, "receive", r.before[len(r.before)-1])
	assert.Equal(t, "receive", r.after[len(r.after)-1])

	r.veto = assert.AnError
	assert.ErrorIs(t, c.DoActionFor(asManager(), o, "submit", ""), assert.AnError)
	state, err := c.StateFor(asManager(), o, core.ReviewStateVariable)
	require.NoError(t, err)
	assert.Equal(t, "sample_received", state)
	assert.Equal(t, "receive", r.after[len(r.after)-1])
}

func TestAfterSubscriberErrorKeepsTransition(t *testing.T) {
	var c = newTestCore(t)
	withPermissionGuard(c)
	var r = &recorder{afterErr: assert.AnError}
	c.Subscribe(r)

	o := createSample(t, c, "s1", "")
	require.NoError(t, c.DoActionFor(asManager(), o, "receive", ""))
	assert.Equal(t, "receive", r.after[len(r.after)-1])

	state, err := c.StateFor(asManager(), o, core.ReviewStateVariable)
	require.NoError(t, err)
	assert.Equal(t, "sample_received", state)
}

func TestChangeState(t *testing.T) {
	var c = newTestCore(t)
	o := createSample(t, c, "s1", "")
	var ctx = context.Background()

	require.NoError(t, c.ChangeState(ctx, o, sampleWorkflow, "verified"))
	state, err := c.StateFor(ctx, o, core.ReviewStateVariable)
	require.NoError(t, err)
	assert.Equal(t, "verified", state)

	entries, err := c.SearchByUID(ctx, o.UID())
	require.NoError(t, err)
	assert.Equal(t, "verified", entries[0].ReviewState)

	assert.True(t, core.IsCode(c.ChangeState(ctx, o, sampleWorkflow, "nowhere"), core.CodeInvalidParameter))
	assert.True(t, core.IsCode(c.ChangeState(ctx, o, "nothing", "verified"), core.CodeWorkflow))
}

func TestChainResolver(t *testing.T) {
	var c = newTestCore(t)
	c.ChainResolvers["Sample"] = func(ctx context.Context, o *core.Object, base []string) ([]string, error) {
		return append(base, "bika_inactive_workflow"), nil
	}
	o := createSample(t, c, "s1", "")

	chain, err := c.ChainFor(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, []string{sampleWorkflow, "bika_cancellation_workflow", "bika_inactive_workflow"}, chain)
	assert.Equal(t, []string{sampleWorkflow, "bika_cancellation_workflow"}, c.ToolChain(o))

	state, err := c.StateFor(context.Background(), o, "inactive_state")
	require.NoError(t, err)
	assert.Equal(t, "active", state)
}

func TestProxyRoles(t *testing.T) {
	var c = newTestCore(t)
	var ctx = asManager()

	roles, err := c.ProxyRoles(sampleWorkflow, "default")
	require.NoError(t, err)
	assert.Empty(t, roles)

	require.NoError(t, c.ManageProxy(ctx, sampleWorkflow, "default", []string{core.Manager}))
	roles, err = c.ProxyRoles(sampleWorkflow, "default")
	require.NoError(t, err)
	assert.Equal(t, []string{core.Manager}, roles)

	assert.True(t, core.IsCode(c.ManageProxy(ctx, "nothing", "default", nil), core.CodeWorkflow))
}

func TestVisibleActions(t *testing.T) {
	var c = newTestCore(t)

	actions, err := c.VisibleActions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, actions)

	actions, err = c.VisibleActions(asManager())
	require.NoError(t, err)
	assert.Len(t, actions, len(sqldb.DefaultActions))
}

func TestDeleteObjects(t *testing.T) {
	var c = newTestCore(t)
	var ctx = asManager()
	o := createSample(t, c, "s1", "")

	require.NoError(t, c.DeleteObjects(ctx, []string{"clients"}))

	_, err := c.Open("/clients")
	assert.True(t, core.IsCode(err, core.CodeNotFound))

	entries, err := c.SearchByUID(ctx, o.UID())
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.True(t, core.IsCode(c.DeleteObjects(ctx, []string{"clients"}), core.CodeNotFound))
}

func TestMatchLanguage(t *testing.T) {
	assert.Equal(t, "de", core.MatchLanguage("de-DE,de;q=0.9,en;q=0.8").String())
	assert.Equal(t, "en", core.MatchLanguage("fr").String())
	assert.Equal(t, "en", core.MatchLanguage("").String())
}

func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, "client-1", core.NormalizeSlug(" Client 1 "))
	assert.Equal(t, "a_b-c", core.NormalizeSlug("a_b/c"))
}

func TestMessage(t *testing.T) {
	var c = newTestCore(t)
	_, err := c.Open("/missing")
	assert.Equal(t, "open /missing: missing", core.Message(err))
	assert.Equal(t, "", core.Message(nil))
	assert.Equal(t, assert.AnError.Error(), core.Message(assert.AnError))
}
