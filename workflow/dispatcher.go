// Package workflow runs the side effects of LIMS transitions and answers questions about the workflow state of objects.
package workflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/wansing/perspective-lims/core"
)

// DefaultScript is the workflow script whose proxy roles the after handlers run with.
const DefaultScript = "default"

// Tool is the workflow tool of the host.
type Tool interface {
	ChangeState(ctx context.Context, o *core.Object, workflowID, state string) error
	DoActionFor(ctx context.Context, o *core.Object, action, comments string) error
	GetTransitionsFor(ctx context.Context, o *core.Object) ([]*core.Transition, error)
	GetWorkflowByID(id string) (*core.Workflow, error)
	ProxyRoles(workflowID, script string) ([]string, error)
	ReviewHistory(ctx context.Context, o *core.Object) ([]core.HistoryEntry, error)
	StateFor(ctx context.Context, o *core.Object, variable string) (string, error)
	ToolChain(o *core.Object) []string
}

type Membership interface {
	CheckPermission(ctx context.Context, permission string, o *core.Object) (bool, error)
}

type Catalog interface {
	SearchByUID(ctx context.Context, uid string) ([]core.CatalogEntry, error)
}

// Dispatcher performs transitions on behalf of callers and runs the registered handlers when the tool notifies it.
type Dispatcher struct {
	Tool         Tool
	Membership   Membership
	Handlers     *Handlers
	Translations *Translations
	Metrics      *Metrics
	Logger       *slog.Logger
}

func NewDispatcher(tool Tool, membership Membership, handlers *Handlers, logger *slog.Logger) *Dispatcher {
	if handlers == nil {
		handlers = NewHandlers()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		Tool:       tool,
		Membership: membership,
		Handlers:   handlers,
		Logger:     logger,
	}
}

// PerformTransition performs the action on o unless it has been marked in the skip list of ctx.
// It never fails: if the tool rejects the action, it returns false and the reason.
// If ctx has no skip list, one is attached for the duration of the call, so cascading transitions are
// guarded, but separate calls are not.
func (d *Dispatcher) PerformTransition(ctx context.Context, o *core.Object, action string) (bool, string) {

	ctx, release := d.InRequest(ctx)
	defer release()

	if Skip(ctx, o, action, Peek) {
		d.Metrics.observe(action, outcomeSkipped)
		return false, fmt.Sprintf("transition %s has already been performed on %s in this request", action, o)
	}

	if err := d.Tool.DoActionFor(ctx, o, action, ""); err != nil {
		var message = core.Message(err)
		if core.IsCode(err, core.CodeInvalidParameter) {
			d.Logger.Warn("failed to perform transition", "transition", action, "object", o.String(), "err", message)
			d.Metrics.observe(action, outcomeRejected)
		} else {
			d.Logger.Error("failed to perform transition", "transition", action, "object", o.String(), "err", err)
			d.Metrics.observe(action, outcomeFailed)
		}
		return false, message
	}

	d.Metrics.observe(action, outcomePerformed)
	return true, ""
}

// OnBeforeTransition runs the before handlers of the transition. The first error aborts the transition.
func (d *Dispatcher) OnBeforeTransition(ctx context.Context, o *core.Object, evt core.TransitionEvent) error {
	if evt.Creation() {
		return nil
	}
	for _, fn := range lookup(d.Handlers.before, o.PortalType(), evt.Transition.ID) {
		if err := fn(ctx, o, evt); err != nil {
			return err
		}
	}
	return nil
}

// OnAfterTransition marks the transition in the skip list and runs its after handlers with the proxy roles
// of the workflow script. A transition which has been marked before doesn't run its handlers again.
func (d *Dispatcher) OnAfterTransition(ctx context.Context, o *core.Object, evt core.TransitionEvent) error {

	if evt.Creation() {
		return nil
	}

	ctx, release := d.InRequest(ctx)
	defer release()

	if Skip(ctx, o, evt.Transition.ID, Mark) {
		return nil
	}

	var handlers = lookup(d.Handlers.after, o.PortalType(), evt.Transition.ID)
	if len(handlers) == 0 {
		return nil
	}

	roles, err := d.Tool.ProxyRoles(evt.Workflow.ID, DefaultScript)
	if err != nil {
		return err
	}
	ctx = core.WithProxyRoles(ctx, roles)

	var errs []error
	for _, fn := range handlers {
		if err := fn(ctx, o, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// InRequest returns ctx if it carries a skip list. Otherwise it attaches a new one, which release discards.
func (d *Dispatcher) InRequest(ctx context.Context) (context.Context, func()) {
	if skipListFrom(ctx) != nil {
		return ctx, func() {}
	}
	d.Logger.Debug("no request scope, attaching a skip list")
	return WithSkipList(ctx)
}
