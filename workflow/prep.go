package workflow

import (
	"context"
	"log/slog"

	"github.com/wansing/perspective-lims/core"
)

const (
	// PrepState is the review state in which the preparation workflow of an object is active.
	PrepState = "sample_prep"
	// ReceivedState is where the primary workflow goes after preparation, unless the preparation ends in a primary state.
	ReceivedState = "sample_received"
)

// PrepChain returns a core.ChainResolver which appends the preparation workflow of an object to its chain
// while its review state is PrepState.
//
// The review state is read from the catalog, because reading it through the tool would resolve the chain again.
// The catalog is a snapshot, so a concurrent transition may change the state after the chain has been computed.
func PrepChain(catalog Catalog) core.ChainResolver {
	return func(ctx context.Context, o *core.Object, base []string) ([]string, error) {
		entries, err := catalog.SearchByUID(ctx, o.UID())
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 || entries[0].ReviewState != PrepState {
			return base, nil
		}
		var prep = o.PreparationWorkflow()
		if prep == "" {
			return base, nil
		}
		return append(append([]string(nil), base...), prep), nil
	}
}

// PrepCompletion ends the preparation of objects. When the preparation workflow reaches a terminal state,
// the primary workflow is set to the state with the same id if there is one, else to the fallback state.
type PrepCompletion struct {
	tool     Tool
	fallback string
	logger   *slog.Logger
}

type PrepOption func(*PrepCompletion)

// WithFallbackState replaces ReceivedState.
func WithFallbackState(state string) PrepOption {
	return func(p *PrepCompletion) {
		p.fallback = state
	}
}

func WithPrepLogger(logger *slog.Logger) PrepOption {
	return func(p *PrepCompletion) {
		p.logger = logger
	}
}

func NewPrepCompletion(tool Tool, opts ...PrepOption) *PrepCompletion {
	var p = &PrepCompletion{
		tool:     tool,
		fallback: ReceivedState,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PrepCompletion) OnBeforeTransition(ctx context.Context, o *core.Object, evt core.TransitionEvent) error {
	return nil
}

func (p *PrepCompletion) OnAfterTransition(ctx context.Context, o *core.Object, evt core.TransitionEvent) error {

	if evt.Creation() || evt.NewState == nil || !evt.NewState.Terminal() {
		return nil
	}

	if o.PreparationWorkflow() == "" || evt.Workflow.ID != o.PreparationWorkflow() {
		return nil
	}

	var chain = p.tool.ToolChain(o)
	if len(chain) == 0 {
		return nil
	}

	primary, err := p.tool.GetWorkflowByID(chain[0])
	if err != nil {
		return err
	}

	var target = p.fallback
	if _, ok := primary.States[evt.NewState.ID]; ok {
		target = evt.NewState.ID
	}

	p.logger.Info("preparation complete", "object", o.String(), "workflow", primary.ID, "state", target)
	return p.tool.ChangeState(ctx, o, primary.ID, target)
}
