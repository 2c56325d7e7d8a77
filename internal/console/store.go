package console

// Scope identifies what a store's items belong to, for example a workspace
// id or a repository id plus a filter key.
type Scope struct {
	ID  int64
	Key string
}

// Ticket tags one load request. A response is applied only while its ticket
// is still the store's latest.
type Ticket struct {
	version uint64
	scope   Scope
}

// Scope returns the scope the load was issued for.
func (t Ticket) Scope() Scope { return t.scope }

// Store holds one entity list together with its load state. Only the
// component that owns a store writes to it.
type Store[T any] struct {
	items       []T
	loading     bool
	loaded      bool
	err         error
	mutationErr error
	version     uint64
	scope       Scope
}

// Begin starts a load for scope. Moving to a different scope drops the
// previous items immediately so they are never shown under the new scope.
func (s *Store[T]) Begin(scope Scope) Ticket {
	if scope != s.scope {
		s.items = nil
		s.loaded = false
		s.err = nil
	}
	s.version++
	s.scope = scope
	s.loading = true
	s.mutationErr = nil
	return Ticket{version: s.version, scope: scope}
}

// Resolve applies a load result. It reports false and changes nothing when
// the ticket was superseded by a later Begin, Clear or scope change. A
// failed load clears the items and records the error.
func (s *Store[T]) Resolve(t Ticket, items []T, err error) bool {
	if t.version != s.version || t.scope != s.scope {
		return false
	}
	s.loading = false
	s.loaded = true
	if err != nil {
		s.items = nil
		s.err = err
		return true
	}
	if items == nil {
		items = []T{}
	}
	s.items = items
	s.err = nil
	return true
}

// MutationFailed records a failed create, update or delete. Items are kept.
func (s *Store[T]) MutationFailed(err error) {
	s.mutationErr = err
}

// Clear empties the store and invalidates in-flight loads.
func (s *Store[T]) Clear() {
	s.version++
	s.items = nil
	s.loading = false
	s.loaded = false
	s.err = nil
	s.mutationErr = nil
	s.scope = Scope{}
}

// Items returns the loaded items. Callers must not modify the slice.
func (s *Store[T]) Items() []T { return s.items }

func (s *Store[T]) Len() int { return len(s.items) }

func (s *Store[T]) Loading() bool { return s.loading }

// Loaded reports whether a load has completed for the current scope.
func (s *Store[T]) Loaded() bool { return s.loaded }

// Err returns the last load error.
func (s *Store[T]) Err() error { return s.err }

// MutationErr returns the last mutation error. It is cleared by the next
// Begin.
func (s *Store[T]) MutationErr() error { return s.mutationErr }

func (s *Store[T]) Scope() Scope { return s.scope }

func (s *Store[T]) Version() uint64 { return s.version }
