package workflow

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/perspective-lims/config"
	"github.com/wansing/perspective-lims/core"
	"github.com/wansing/perspective-lims/logging"
	"github.com/wansing/perspective-lims/sqldb"
	"github.com/wansing/perspective-lims/sqldb/sqlite3"
)

const (
	sampleWorkflowID = "bika_sample_workflow"
	prepWorkflowID   = "bika_sampleprep_workflow"
)

type site struct {
	core       *core.CoreDB
	dispatcher *Dispatcher
	metrics    *Metrics
	clients    *core.Object
}

func newSite(t *testing.T, handlers *Handlers) *site {
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

	var d = NewDispatcher(c, c, handlers, logging.NewNop())
	d.Metrics, err = NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	d.Translations, err = LoadTranslations(nil)
	require.NoError(t, err)

	require.NoError(t, Register(c, d, NewPrepCompletion(c, WithPrepLogger(logging.NewNop())), "Sample", "AnalysisRequest"))

	root, err := c.Root()
	require.NoError(t, err)
	clients, err := c.CreateObject(asSiteManager(context.Background()), root, "clients", "ClientFolder", "Clients", "")
	require.NoError(t, err)

	return &site{core: c, dispatcher: d, metrics: d.Metrics, clients: clients}
}

func asSiteManager(ctx context.Context) context.Context {
	return core.WithProxyRoles(ctx, []string{core.Manager})
}

func (s *site) create(t *testing.T, slug, portalType, prep string) *core.Object {
	t.Helper()
	o, err := s.core.CreateObject(asSiteManager(context.Background()), s.clients, slug, portalType, slug, prep)
	require.NoError(t, err)
	return o
}

func transitionIDs(infos []TransitionInfo) []string {
	var ids = make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return ids
}

func TestPreparationCompletes(t *testing.T) {
	var s = newSite(t, nil)
	var o = s.create(t, "s1", "Sample", prepWorkflowID)

	ctx, release := WithSkipList(asSiteManager(context.Background()))
	defer release()

	ok, msg := s.dispatcher.PerformTransition(ctx, o, "prepare")
	require.True(t, ok, msg)
	assert.Equal(t, PrepState, s.dispatcher.CurrentState(ctx, o, Review))

	chain, err := s.core.ChainFor(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, []string{sampleWorkflowID, "bika_cancellation_workflow", prepWorkflowID}, chain)

	infos, err := s.dispatcher.ListLegalTransitions(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, []string{"cancel", "complete_prep", "send_to_verification"}, transitionIDs(infos))

	ok, msg = s.dispatcher.PerformTransition(ctx, o, "complete_prep")
	require.True(t, ok, msg)
	assert.Equal(t, ReceivedState, s.dispatcher.CurrentState(ctx, o, Review))

	chain, err = s.core.ChainFor(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, []string{sampleWorkflowID, "bika_cancellation_workflow"}, chain)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.transitions.WithLabelValues("complete_prep", outcomePerformed)))
}

func TestPreparationEndsInPrimaryState(t *testing.T) {
	var s = newSite(t, nil)
	var o = s.create(t, "s1", "Sample", prepWorkflowID)
	var ctx = asSiteManager(context.Background())

	ok, msg := s.dispatcher.PerformTransition(ctx, o, "prepare")
	require.True(t, ok, msg)
	ok, msg = s.dispatcher.PerformTransition(ctx, o, "send_to_verification")
	require.True(t, ok, msg)

	assert.Equal(t, "to_be_verified", s.dispatcher.CurrentState(ctx, o, Review))

	entries, err := s.core.SearchByUID(ctx, o.UID())
	require.NoError(t, err)
	assert.Equal(t, "to_be_verified", entries[0].ReviewState)
}

func TestPrepareWithoutPrepWorkflow(t *testing.T) {
	var s = newSite(t, nil)
	var o = s.create(t, "s1", "Sample", "")
	var ctx = asSiteManager(context.Background())

	ok, msg := s.dispatcher.PerformTransition(ctx, o, "prepare")
	require.True(t, ok, msg)

	// no preparation workflow joins the chain, so the sample stays in preparation
	infos, err := s.dispatcher.ListLegalTransitions(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, []string{"cancel"}, transitionIDs(infos))
}

func TestCancelledObjectsHaveNoBasicTransitions(t *testing.T) {
	var s = newSite(t, nil)
	var o = s.create(t, "s1", "Sample", "")
	var ctx = asSiteManager(context.Background())

	ok, msg := s.dispatcher.PerformTransition(ctx, o, "cancel")
	require.True(t, ok, msg)
	assert.Equal(t, string(CancellationCancelled), s.dispatcher.CurrentState(ctx, o, Cancellation))

	assert.False(t, s.dispatcher.IsBasicTransitionAllowed(ctx, o, ""))

	infos, err := s.dispatcher.ListLegalTransitions(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, []string{"reinstate"}, transitionIDs(infos))

	ok, msg = s.dispatcher.PerformTransition(ctx, o, "receive")
	assert.False(t, ok)
	assert.Contains(t, msg, "receive")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.transitions.WithLabelValues("receive", outcomeRejected)))
}

func TestAfterHandlersCascade(t *testing.T) {
	var s *site
	var sample *core.Object
	var roles []string

	var handlers = NewHandlers()
	handlers.After("AnalysisRequest", "receive", func(ctx context.Context, o *core.Object, evt core.TransitionEvent) error {
		roles = core.ProxyRolesFrom(ctx)
		s.dispatcher.PerformTransition(ctx, sample, "receive")
		return nil
	})
	s = newSite(t, handlers)
	require.NoError(t, s.core.ManageProxy(context.Background(), sampleWorkflowID, DefaultScript, []string{"LabManager"}))

	var ar = s.create(t, "ar1", "AnalysisRequest", "")
	sample = s.create(t, "s1", "Sample", "")

	ctx, release := WithSkipList(asSiteManager(context.Background()))
	defer release()

	ok, msg := s.dispatcher.PerformTransition(ctx, ar, "receive")
	require.True(t, ok, msg)

	assert.Equal(t, []string{core.Manager, "LabManager"}, roles)
	assert.Equal(t, ReceivedState, s.dispatcher.CurrentState(ctx, sample, Review))

	// both have been marked in this request
	ok, msg = s.dispatcher.PerformTransition(ctx, sample, "receive")
	assert.False(t, ok)
	assert.Contains(t, msg, "already been performed")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.transitions.WithLabelValues("receive", outcomeSkipped)))
}

func TestFailingAfterHandlerKeepsTransition(t *testing.T) {
	var handlers = NewHandlers()
	handlers.After(AnyType, "receive", func(context.Context, *core.Object, core.TransitionEvent) error {
		return errors.New("after handler failed")
	})
	var s = newSite(t, handlers)
	var o = s.create(t, "s1", "Sample", "")
	var ctx = asSiteManager(context.Background())

	ok, msg := s.dispatcher.PerformTransition(ctx, o, "receive")
	assert.True(t, ok)
	assert.Empty(t, msg)
	assert.Equal(t, ReceivedState, s.dispatcher.CurrentState(ctx, o, Review))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.transitions.WithLabelValues("receive", outcomePerformed)))
}

func TestCascadeWithoutRequestScope(t *testing.T) {
	var s *site
	var sample *core.Object
	var second bool
	var secondMsg string

	var handlers = NewHandlers()
	handlers.After("AnalysisRequest", "receive", func(ctx context.Context, o *core.Object, evt core.TransitionEvent) error {
		s.dispatcher.PerformTransition(ctx, sample, "receive")
		second, secondMsg = s.dispatcher.PerformTransition(ctx, sample, "receive")
		return nil
	})
	s = newSite(t, handlers)

	var ar = s.create(t, "ar1", "AnalysisRequest", "")
	sample = s.create(t, "s1", "Sample", "")

	// no WithSkipList here
	ok, msg := s.dispatcher.PerformTransition(asSiteManager(context.Background()), ar, "receive")
	require.True(t, ok, msg)

	assert.False(t, second)
	assert.Contains(t, secondMsg, "already been performed")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.transitions.WithLabelValues("receive", outcomeSkipped)))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.transitions.WithLabelValues("receive", outcomeRejected)))
}

func TestTransitionDateFromSQLite(t *testing.T) {
	var s = newSite(t, nil)
	var o = s.create(t, "s1", "Sample", "")

	alice, err := s.core.InsertUser("alice")
	require.NoError(t, err)
	var ctx = asSiteManager(core.WithUser(context.Background(), alice))

	_, ok := s.dispatcher.TransitionDate(ctx, o, "receive")
	assert.False(t, ok)

	ok, msg := s.dispatcher.PerformTransition(ctx, o, "receive")
	require.True(t, ok, msg)

	_, ok = s.dispatcher.TransitionDate(ctx, o, "receive")
	assert.True(t, ok)
	assert.Equal(t, "alice", s.dispatcher.TransitionActor(ctx, o, "receive"))
	assert.NotEmpty(t, s.dispatcher.FormatTransitionDate(ctx, o, "receive"))
}
