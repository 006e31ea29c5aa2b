package workflow

import (
	"context"

	"github.com/wansing/perspective-lims/core"
)

// TransitionsField is the field which ReadExtender adds to read responses.
const TransitionsField = "transitions"

// ReadExtender adds the legal transitions to the read response of an object.
type ReadExtender struct {
	Dispatcher *Dispatcher
}

// Extend sets data["transitions"] if includeFields is empty or contains "transitions".
func (e ReadExtender) Extend(ctx context.Context, o *core.Object, includeFields []string, data map[string]any) error {
	if len(includeFields) > 0 && !containsString(includeFields, TransitionsField) {
		return nil
	}
	transitions, err := e.Dispatcher.ListLegalTransitions(ctx, o)
	if err != nil {
		return err
	}
	data[TransitionsField] = transitions
	return nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
