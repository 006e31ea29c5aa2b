package core

import (
	"context"
	stderrors "errors"
	"time"
)

const ReviewStateVariable = "review_state"

// TransitionEvent describes a state change of an object in one workflow.
type TransitionEvent struct {
	Workflow   *Workflow
	Transition *Transition // nil if the object has just been created
	OldState   *State      // nil if the object has just been created
	NewState   *State
}

// Creation reports whether the event notifies about a new object rather than a transition.
func (e TransitionEvent) Creation() bool {
	return e.Transition == nil
}

// A TransitionSubscriber is notified about every transition. An error returned by
// OnBeforeTransition aborts the transition.
type TransitionSubscriber interface {
	OnBeforeTransition(ctx context.Context, o *Object, evt TransitionEvent) error
	OnAfterTransition(ctx context.Context, o *Object, evt TransitionEvent) error
}

// GetWorkflowByID returns the workflow definition with the given id.
func (c *CoreDB) GetWorkflowByID(id string) (*Workflow, error) {
	if w, ok := c.Workflows.Get(id); ok {
		return w, nil
	}
	return nil, newError(ErrWorkflow, "workflow %s not found", id)
}

// ToolChain returns the chain configured for the portal type of o, ignoring chain resolvers.
func (c *CoreDB) ToolChain(o *Object) []string {
	return c.Workflows.Chain(o.PortalType())
}

// ChainFor returns the workflow chain of o. A resolver registered for the portal type may extend the configured chain.
func (c *CoreDB) ChainFor(ctx context.Context, o *Object) ([]string, error) {
	var base = c.ToolChain(o)
	if resolve, ok := c.ChainResolvers[o.PortalType()]; ok {
		return resolve(ctx, o, base)
	}
	return base, nil
}

func (c *CoreDB) workflowsFor(ctx context.Context, o *Object) ([]*Workflow, error) {
	chain, err := c.ChainFor(ctx, o)
	if err != nil {
		return nil, err
	}
	var workflows = make([]*Workflow, 0, len(chain))
	for _, id := range chain {
		w, err := c.GetWorkflowByID(id)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	return workflows, nil
}

// workflowWithVariable returns the first workflow of the chain of o which stores its state in variable.
func (c *CoreDB) workflowWithVariable(ctx context.Context, o *Object, variable string) (*Workflow, error) {
	workflows, err := c.workflowsFor(ctx, o)
	if err != nil {
		return nil, err
	}
	for _, w := range workflows {
		if w.StateVariable == variable {
			return w, nil
		}
	}
	return nil, newError(ErrWorkflow, "%s: no workflow provides %s", o, variable)
}

// StateFor returns the value of a state variable of o, like "review_state".
func (c *CoreDB) StateFor(ctx context.Context, o *Object, variable string) (string, error) {
	w, err := c.workflowWithVariable(ctx, o, variable)
	if err != nil {
		return "", err
	}
	return c.StateDB.GetState(o.ID(), w.ID)
}

// ReviewHistory returns the history of the workflow which provides the review state of o, oldest first.
func (c *CoreDB) ReviewHistory(ctx context.Context, o *Object) ([]HistoryEntry, error) {
	w, err := c.workflowWithVariable(ctx, o, ReviewStateVariable)
	if err != nil {
		return nil, err
	}
	return c.StateDB.History(o.ID(), w.ID)
}

// currentState returns the state of o in w. Objects without a stored state are in the initial state.
func (c *CoreDB) currentState(o *Object, w *Workflow) (*State, error) {
	id, err := c.StateDB.GetState(o.ID(), w.ID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = w.Initial
	}
	s, ok := w.States[id]
	if !ok {
		return nil, newError(ErrWorkflow, "%s: state %s not found in workflow %s", o, id, w.ID)
	}
	return s, nil
}

func (c *CoreDB) guardAllows(ctx context.Context, o *Object, t *Transition) bool {
	if t.Guard.Expr != "" {
		guard, ok := c.Guards[t.Guard.Expr]
		if !ok {
			c.Logger.Warn("unknown guard expression", "expr", t.Guard.Expr, "transition", t.ID)
			return false
		}
		return guard(ctx, o, t.Guard.Permission)
	}
	if t.Guard.Permission != "" {
		ok, err := c.CheckPermission(ctx, t.Guard.Permission, o)
		if err != nil {
			c.Logger.Error("checking guard permission", "transition", t.ID, "object", o.String(), "err", err)
			return false
		}
		return ok
	}
	return true
}

// GetTransitionsFor returns the transitions which the acting user can perform on o,
// in chain order and then in the order of the exit transitions of the current states.
func (c *CoreDB) GetTransitionsFor(ctx context.Context, o *Object) ([]*Transition, error) {
	workflows, err := c.workflowsFor(ctx, o)
	if err != nil {
		return nil, err
	}
	var seen = make(map[string]struct{})
	var result []*Transition
	for _, w := range workflows {
		state, err := c.currentState(o, w)
		if err != nil {
			return nil, err
		}
		for _, id := range state.Transitions {
			if _, ok := seen[id]; ok {
				continue
			}
			var t = w.Transitions[id]
			if c.guardAllows(ctx, o, t) {
				seen[id] = struct{}{}
				result = append(result, t)
			}
		}
	}
	return result, nil
}

// DoActionFor performs a transition on o. It returns an error with code CodeInvalidParameter
// if the transition is not available in the current state or its guard denies it.
// A before subscriber error aborts the transition. After subscriber errors are logged, as the
// new state has been stored already.
func (c *CoreDB) DoActionFor(ctx context.Context, o *Object, action, comments string) error {
	workflows, err := c.workflowsFor(ctx, o)
	if err != nil {
		return err
	}
	for _, w := range workflows {
		state, err := c.currentState(o, w)
		if err != nil {
			return err
		}
		if !contains(state.Transitions, action) {
			continue
		}
		var t = w.Transitions[action]
		if !c.guardAllows(ctx, o, t) {
			return newError(ErrInvalidParameter, "transition %s on %s is not allowed", action, o)
		}
		return c.transition(ctx, o, w, state, t, comments)
	}
	return newError(ErrInvalidParameter, "invalid transition %s for %s", action, o)
}

func (c *CoreDB) transition(ctx context.Context, o *Object, w *Workflow, from *State, t *Transition, comments string) error {

	var evt = TransitionEvent{
		Workflow:   w,
		Transition: t,
		OldState:   from,
		NewState:   w.States[t.NewState],
	}

	for _, s := range c.Subscribers {
		if err := s.OnBeforeTransition(ctx, o, evt); err != nil {
			return err
		}
	}

	if err := c.StateDB.SetState(o.ID(), HistoryEntry{
		Workflow: w.ID,
		Action:   t.ID,
		Actor:    ActorName(ctx),
		State:    t.NewState,
		Time:     time.Now(),
		Comments: comments,
	}); err != nil {
		return err
	}

	if err := c.Reindex(ctx, o); err != nil {
		return err
	}

	// the transition is stored, errors of after subscribers don't undo it
	if err := c.notifyAfter(ctx, o, evt); err != nil {
		c.Logger.Error("after transition", "transition", t.ID, "object", o.String(), "err", err)
	}
	return nil
}

func (c *CoreDB) notifyAfter(ctx context.Context, o *Object, evt TransitionEvent) error {
	var errs []error
	for _, s := range c.Subscribers {
		if err := s.OnAfterTransition(ctx, o, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// ChangeState forces o into a state of a workflow without a transition and without notifying subscribers.
func (c *CoreDB) ChangeState(ctx context.Context, o *Object, workflowID, state string) error {
	w, err := c.GetWorkflowByID(workflowID)
	if err != nil {
		return err
	}
	if _, ok := w.States[state]; !ok {
		return newError(ErrInvalidParameter, "state %s not found in workflow %s", state, workflowID)
	}
	if err := c.StateDB.SetState(o.ID(), HistoryEntry{
		Workflow: workflowID,
		Actor:    ActorName(ctx),
		State:    state,
		Time:     time.Now(),
	}); err != nil {
		return err
	}
	return c.Reindex(ctx, o)
}

// ProxyRoles returns the roles which a workflow script runs with.
func (c *CoreDB) ProxyRoles(workflowID, script string) ([]string, error) {
	return c.ScriptDB.GetProxyRoles(workflowID, script)
}
