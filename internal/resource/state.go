package resource

import (
	"context"
	"fmt"

	"github.com/fathima-sithara/quickads/internal/apperr"
)

// View is what a page renders for a resource.
type View string

const (
	ViewLoading View = "loading"
	ViewError   View = "error"
	ViewEmpty   View = "empty"
	ViewReady   View = "ready"
)

func viewOf(loading bool, err error, empty bool) View {
	switch {
	case loading:
		return ViewLoading
	case err != nil:
		return ViewError
	case empty:
		return ViewEmpty
	default:
		return ViewReady
	}
}

// State is the untyped result of a cache read.
type State struct {
	Data       []byte
	Loading    bool
	Validating bool
	Empty      bool
	Err        error
}

func (s State) View() View {
	return viewOf(s.Loading, s.Err, s.Empty || (s.Data == nil && !s.Loading && s.Err == nil))
}

// Snapshot is a decoded State.
type Snapshot[T any] struct {
	Data       T     `json:"data"`
	Loading    bool  `json:"loading"`
	Validating bool  `json:"validating"`
	Empty      bool  `json:"empty"`
	Err        error `json:"-"`
}

// View resolves the flags with precedence loading > error > empty > ready.
func (s Snapshot[T]) View() View {
	return viewOf(s.Loading, s.Err, s.Empty)
}

// Mutation is a write plus the read keys it makes stale.
type Mutation struct {
	Name        string
	Invalidates []string
	Do          func(ctx context.Context) error
}

// Load fetches key through c and decodes the body. isEmpty decides when a
// decoded value counts as empty; nil means never.
func Load[T any](ctx context.Context, c *Cache, key string, fetch Fetcher, decode func([]byte) (T, error), isEmpty func(T) bool) Snapshot[T] {
	return decodeState(c.Fetch(ctx, key, fetch), decode, isEmpty)
}

// LoadList is Load for collections; an empty collection is Empty.
func LoadList[T any](ctx context.Context, c *Cache, key string, fetch Fetcher, decode func([]byte) ([]T, error)) Snapshot[[]T] {
	s := decodeState(c.Fetch(ctx, key, fetch), decode, func(v []T) bool { return len(v) == 0 })
	if s.Data == nil {
		s.Data = []T{}
	}
	return s
}

func decodeState[T any](st State, decode func([]byte) (T, error), isEmpty func(T) bool) Snapshot[T] {
	out := Snapshot[T]{Loading: st.Loading, Validating: st.Validating, Empty: st.Empty, Err: st.Err}
	if st.Data == nil {
		if !st.Loading && st.Err == nil {
			out.Empty = true
		}
		return out
	}
	v, err := decode(st.Data)
	if err != nil {
		out.Err = fmt.Errorf("%w: %v", apperr.ErrProtocolMismatch, err)
		return out
	}
	out.Data = v
	if isEmpty != nil && isEmpty(v) {
		out.Empty = true
	}
	return out
}
