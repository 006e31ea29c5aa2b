package workflow

import (
	"context"

	"github.com/wansing/perspective-lims/core"
)

type SkipMode int

const (
	Mark   SkipMode = iota // remember the action
	Peek                   // only look
	Unskip                 // forget the action
)

type skipKey struct {
	uid    string
	action string
}

// A SkipList remembers which actions have been performed on which objects during one request.
// It is not safe for concurrent use, as a request is handled by one goroutine.
type SkipList struct {
	keys map[skipKey]struct{} // allocated on first mark
}

type skipCtxKey struct{}

// WithSkipList returns a context carrying an empty skip list. Call release when the request is done.
func WithSkipList(ctx context.Context) (context.Context, func()) {
	var list = &SkipList{}
	return context.WithValue(ctx, skipCtxKey{}, list), func() {
		list.keys = nil
	}
}

func skipListFrom(ctx context.Context) *SkipList {
	list, _ := ctx.Value(skipCtxKey{}).(*SkipList)
	return list
}

// Skip reports whether the action has been marked on o before this call.
// Mark marks it, Peek has no side effect and Unskip removes the mark.
// Without a skip list in ctx, nothing is remembered and Skip returns false, so such calls are not
// protected against repeated transitions. The Dispatcher entry points attach a list, see InRequest.
func Skip(ctx context.Context, o *core.Object, action string, mode SkipMode) bool {

	var list = skipListFrom(ctx)
	if list == nil {
		return false
	}

	var key = skipKey{uid: o.UID(), action: action}
	_, marked := list.keys[key] // reading a nil map is fine

	switch mode {
	case Mark:
		if !marked {
			if list.keys == nil {
				list.keys = make(map[skipKey]struct{})
			}
			list.keys[key] = struct{}{}
		}
	case Unskip:
		delete(list.keys, key)
	}

	return marked
}
