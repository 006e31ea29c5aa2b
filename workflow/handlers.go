package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/goliatone/go-errors"
	"github.com/wansing/perspective-lims/core"
)

// AnyType registers a handler for every portal type.
const AnyType = "*"

// A Handler is a side effect of a transition.
type Handler func(ctx context.Context, o *core.Object, evt core.TransitionEvent) error

type handlerKey struct {
	portalType string
	transition string
}

// Handlers maps transitions to their before and after handlers.
type Handlers struct {
	before map[handlerKey][]Handler
	after  map[handlerKey][]Handler
}

func NewHandlers() *Handlers {
	return &Handlers{
		before: make(map[handlerKey][]Handler),
		after:  make(map[handlerKey][]Handler),
	}
}

// Before registers fn to run before the transition. An error aborts the transition.
func (h *Handlers) Before(portalType, transition string, fn Handler) {
	var key = handlerKey{portalType, transition}
	h.before[key] = append(h.before[key], fn)
}

// After registers fn to run after the transition has been stored.
func (h *Handlers) After(portalType, transition string, fn Handler) {
	var key = handlerKey{portalType, transition}
	h.after[key] = append(h.after[key], fn)
}

// lookup returns the handlers of the portal type, followed by the handlers for any type.
func lookup(m map[handlerKey][]Handler, portalType, transition string) []Handler {
	var result = append([]Handler(nil), m[handlerKey{portalType, transition}]...)
	if portalType != AnyType {
		result = append(result, m[handlerKey{AnyType, transition}]...)
	}
	return result
}

// Validate returns an error if a handler is registered for a transition which no workflow defines.
func (h *Handlers) Validate(r *core.WorkflowRegistry) error {

	var known = r.TransitionIDs()
	var unknown = make(map[string]struct{})
	for _, m := range []map[handlerKey][]Handler{h.before, h.after} {
		for key := range m {
			if _, ok := known[key.transition]; !ok {
				unknown[fmt.Sprintf("%s/%s", key.portalType, key.transition)] = struct{}{}
			}
		}
	}

	if len(unknown) == 0 {
		return nil
	}

	var list = make([]string, 0, len(unknown))
	for k := range unknown {
		list = append(list, k)
	}
	sort.Strings(list)

	return errors.New(fmt.Sprintf("handlers registered for unknown transitions: %v", list), errors.CategoryValidation).
		WithTextCode("UNKNOWN_TRANSITION").
		WithMetadata(map[string]any{"handlers": list})
}
