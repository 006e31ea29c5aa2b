package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/perspective-lims/core"
	"github.com/wansing/perspective-lims/logging"
)

func prepObject(prepWorkflow string) *core.Object {
	return &core.Object{DBObject: &fakeObject{uid: "s1", portalType: "Sample", prepWorkflow: prepWorkflow}}
}

func TestPrepChain(t *testing.T) {
	var base = []string{"sample_workflow", "cancellation_workflow"}

	var tests = []struct {
		name        string
		reviewState string
		prep        string
		want        []string
	}{
		{"in preparation", PrepState, "prep_workflow", []string{"sample_workflow", "cancellation_workflow", "prep_workflow"}},
		{"in preparation without preparation workflow", PrepState, "", base},
		{"received", "sample_received", "prep_workflow", base},
		{"due", "sample_due", "prep_workflow", base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resolve = PrepChain(fakeCatalog{"s1": {UID: "s1", ReviewState: tt.reviewState}})
			chain, err := resolve(context.Background(), prepObject(tt.prep), base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, chain)
		})
	}
}

func TestPrepChainDoesNotModifyBase(t *testing.T) {
	var base = make([]string, 1, 4)
	base[0] = "sample_workflow"
	var resolve = PrepChain(fakeCatalog{"s1": {UID: "s1", ReviewState: PrepState}})

	chain, err := resolve(context.Background(), prepObject("prep_workflow"), base)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
	chain[0] = "changed"
	assert.Equal(t, "sample_workflow", base[0])
}

func TestPrepChainNotIndexed(t *testing.T) {
	var base = []string{"sample_workflow"}
	chain, err := PrepChain(fakeCatalog{})(context.Background(), prepObject("prep_workflow"), base)
	require.NoError(t, err)
	assert.Equal(t, base, chain)
}

func newPrepTool(t *testing.T) *fakeTool {
	var r = testRegistry(t)
	return &fakeTool{
		chain:     []string{"sample_workflow"},
		workflows: r.Workflows,
	}
}

func TestPrepCompletionToPrimaryState(t *testing.T) {
	var tool = newPrepTool(t)
	var p = NewPrepCompletion(tool, WithPrepLogger(logging.NewNop()))

	err := p.OnAfterTransition(context.Background(), prepObject("prep_workflow"), transitionEvent(t, "prep_workflow", "send_to_verification"))
	require.NoError(t, err)
	assert.Equal(t, []stateChange{{"sample_workflow", "to_be_verified"}}, tool.changes)
}

func TestPrepCompletionToFallback(t *testing.T) {
	var tool = newPrepTool(t)
	var p = NewPrepCompletion(tool, WithPrepLogger(logging.NewNop()))

	err := p.OnAfterTransition(context.Background(), prepObject("prep_workflow"), transitionEvent(t, "prep_workflow", "complete"))
	require.NoError(t, err)
	assert.Equal(t, []stateChange{{"sample_workflow", ReceivedState}}, tool.changes)
}

func TestPrepCompletionCustomFallback(t *testing.T) {
	var tool = newPrepTool(t)
	var p = NewPrepCompletion(tool, WithFallbackState("sample_due"), WithPrepLogger(logging.NewNop()))

	err := p.OnAfterTransition(context.Background(), prepObject("prep_workflow"), transitionEvent(t, "prep_workflow", "complete"))
	require.NoError(t, err)
	assert.Equal(t, []stateChange{{"sample_workflow", "sample_due"}}, tool.changes)
}

func TestPrepCompletionIgnoresOtherEvents(t *testing.T) {
	var tool = newPrepTool(t)
	var p = NewPrepCompletion(tool, WithPrepLogger(logging.NewNop()))
	var ctx = context.Background()

	// not terminal
	require.NoError(t, p.OnAfterTransition(ctx, prepObject("prep_workflow"), transitionEvent(t, "prep_workflow", "pause")))

	// terminal state of the primary workflow
	require.NoError(t, p.OnAfterTransition(ctx, prepObject("prep_workflow"), transitionEvent(t, "sample_workflow", "receive")))

	// object has another preparation workflow
	require.NoError(t, p.OnAfterTransition(ctx, prepObject("other_workflow"), transitionEvent(t, "prep_workflow", "complete")))

	// creation
	var w, _ = testRegistry(t).Get("prep_workflow")
	require.NoError(t, p.OnAfterTransition(ctx, prepObject("prep_workflow"), core.TransitionEvent{Workflow: w, NewState: w.States["prep_complete"]}))

	assert.Empty(t, tool.changes)
}
