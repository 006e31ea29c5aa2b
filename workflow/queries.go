package workflow

import (
	"context"
	"time"

	"github.com/wansing/perspective-lims/core"
	"github.com/wansing/perspective-lims/util"
)

// BasicGuard is the guard expression which evaluates IsBasicTransitionAllowed.
const BasicGuard = "basic"

type TransitionInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListLegalTransitions returns the transitions which the acting user can perform on o, in the order of the tool.
// Titles are translated into the request language.
func (d *Dispatcher) ListLegalTransitions(ctx context.Context, o *core.Object) ([]TransitionInfo, error) {
	transitions, err := d.Tool.GetTransitionsFor(ctx, o)
	if err != nil {
		return nil, err
	}
	var lang = core.LanguageFrom(ctx)
	var infos = make([]TransitionInfo, len(transitions))
	for i, t := range transitions {
		infos[i] = TransitionInfo{
			ID:    t.ID,
			Title: d.Translations.Title(lang, t.ID, t.Title),
		}
	}
	return infos, nil
}

// IsBasicTransitionAllowed checks the conditions which most transitions share: o must be neither cancelled nor
// inactive, and the acting user must have the permission, if one is given.
func (d *Dispatcher) IsBasicTransitionAllowed(ctx context.Context, o *core.Object, permission string) bool {

	if CancellationState(d.CurrentState(ctx, o, Cancellation)) == CancellationCancelled {
		return false
	}

	if InactiveState(d.CurrentState(ctx, o, Inactive)) == InactiveInactive {
		return false
	}

	if permission != "" {
		ok, err := d.Membership.CheckPermission(ctx, permission, o)
		if err != nil {
			d.Logger.Error("checking permission", "permission", permission, "object", o.String(), "err", err)
			return false
		}
		return ok
	}

	return true
}

// CurrentState returns the state of o in the given flow, or an empty string if o has no workflow for it.
func (d *Dispatcher) CurrentState(ctx context.Context, o *core.Object, flow StateFlow) string {
	state, err := d.Tool.StateFor(ctx, o, string(flow))
	if err != nil {
		if !core.IsCode(err, core.CodeWorkflow) {
			d.Logger.Error("cannot retrieve state", "flow", string(flow), "object", o.String(), "err", err)
		}
		return ""
	}
	return state
}

// lastEntry returns the most recent review history entry with the given action.
func (d *Dispatcher) lastEntry(ctx context.Context, o *core.Object, action string) (core.HistoryEntry, bool) {
	history, err := d.Tool.ReviewHistory(ctx, o)
	if err != nil {
		d.Logger.Error("cannot retrieve review history", "object", o.String(), "err", err)
		return core.HistoryEntry{}, false
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Action == action {
			return history[i], true
		}
	}
	return core.HistoryEntry{}, false
}

// TransitionDate returns when the action has been performed on o most recently.
func (d *Dispatcher) TransitionDate(ctx context.Context, o *core.Object, action string) (time.Time, bool) {
	entry, ok := d.lastEntry(ctx, o, action)
	return entry.Time, ok
}

// TransitionActor returns who performed the action on o most recently, or an empty string.
func (d *Dispatcher) TransitionActor(ctx context.Context, o *core.Object, action string) string {
	entry, _ := d.lastEntry(ctx, o, action)
	return entry.Actor
}

// FormatTransitionDate is TransitionDate in the long format of the request language.
func (d *Dispatcher) FormatTransitionDate(ctx context.Context, o *core.Object, action string) string {
	t, ok := d.TransitionDate(ctx, o, action)
	if !ok {
		return ""
	}
	return util.FormatLong(t, core.LanguageFrom(ctx))
}
