// Package memory is an in-process implementation of the transaction
// repository. It backs the "memory" data backend and doubles as the test
// fake for the engine.
package memory

import (
	"context"
	"slices"
	"sync"

	"ledger/internal/core"
	"ledger/internal/storage"
)

type state struct {
	mu     sync.RWMutex // guards rows and nextID
	rows   []core.Transaction
	nextID int64

	// writeMu serializes writers so a rollback never discards a write made
	// outside the transaction.
	writeMu sync.Mutex

	createHook func(core.Transaction) error
}

type Store struct {
	st   *state
	inTx bool
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{nextID: 1}}
}

// NewWithRows seeds the store. IDs of the seeded rows are kept; new rows get
// IDs above the highest one.
func NewWithRows(rows ...core.Transaction) *Store {
	s := New()
	for _, r := range rows {
		s.st.rows = append(s.st.rows, cloneRow(r))
		if r.ID >= s.st.nextID {
			s.st.nextID = r.ID + 1
		}
	}
	return s
}

// OnCreate installs a hook called before every insert. A non-nil error aborts
// the insert. Used to simulate storage failures.
func (s *Store) OnCreate(hook func(core.Transaction) error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.createHook = hook
}

// Len returns the number of stored rows across all users.
func (s *Store) Len() int {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	return len(s.st.rows)
}

func (s *Store) FindByID(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return cloneRow(s.st.rows[i]), nil
}

func (s *Store) Find(ctx context.Context, f storage.Filter, p storage.Paging) ([]core.Transaction, error) {
	items, _, err := s.FindAndCount(ctx, f, p)
	return items, err
}

func (s *Store) FindAndCount(_ context.Context, f storage.Filter, p storage.Paging) ([]core.Transaction, int, error) {
	s.st.mu.RLock()
	matched := make([]core.Transaction, 0)
	for _, r := range s.st.rows {
		if f.Match(r) {
			matched = append(matched, cloneRow(r))
		}
	}
	s.st.mu.RUnlock()

	sortRows(matched, p.Order)
	total := len(matched)

	start := min(max(p.Offset, 0), total)
	end := total
	if p.Limit > 0 {
		end = min(start+p.Limit, total)
	}
	return matched[start:end], total, nil
}

func (s *Store) Count(ctx context.Context, f storage.Filter) (int, error) {
	_, total, err := s.FindAndCount(ctx, f, storage.Paging{})
	return total, err
}

func (s *Store) Create(_ context.Context, t *core.Transaction) error {
	unlock := s.lockWriter()
	defer unlock()
	return s.insert(t)
}

func (s *Store) CreateBatch(ctx context.Context, ts []*core.Transaction) error {
	return s.InTx(ctx, func(tx storage.Repository) error {
		for _, t := range ts {
			if err := tx.Create(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Save(_ context.Context, t core.Transaction) error {
	unlock := s.lockWriter()
	defer unlock()

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	i := s.indexOf(t.UserID, t.ID)
	if i < 0 {
		return core.ErrNotFound
	}
	s.st.rows[i] = cloneRow(t)
	return nil
}

func (s *Store) Remove(_ context.Context, userID, id int64) error {
	unlock := s.lockWriter()
	defer unlock()

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.st.rows = slices.Delete(s.st.rows, i, i+1)
	return nil
}

// InTx snapshots the store and restores the snapshot when fn fails.
func (s *Store) InTx(_ context.Context, fn func(storage.Repository) error) error {
	if s.inTx {
		return fn(s)
	}
	s.st.writeMu.Lock()
	defer s.st.writeMu.Unlock()

	s.st.mu.RLock()
	snapshot := slices.Clone(s.st.rows)
	nextID := s.st.nextID
	s.st.mu.RUnlock()

	if err := fn(&Store{st: s.st, inTx: true}); err != nil {
		s.st.mu.Lock()
		s.st.rows = snapshot
		s.st.nextID = nextID
		s.st.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) lockWriter() func() {
	if s.inTx {
		return func() {}
	}
	s.st.writeMu.Lock()
	return s.st.writeMu.Unlock
}

func (s *Store) insert(t *core.Transaction) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if s.st.createHook != nil {
		if err := s.st.createHook(*t); err != nil {
			return err
		}
	}
	t.ID = s.st.nextID
	s.st.nextID++
	s.st.rows = append(s.st.rows, cloneRow(*t))
	return nil
}

func (s *Store) indexOf(userID, id int64) int {
	for i, r := range s.st.rows {
		if r.ID == id && r.UserID == userID {
			return i
		}
	}
	return -1
}

func sortRows(rows []core.Transaction, order storage.Order) {
	switch order {
	case storage.OrderIDAsc:
		slices.SortFunc(rows, func(a, b core.Transaction) int {
			return cmpInt64(a.ID, b.ID)
		})
	default:
		slices.SortFunc(rows, func(a, b core.Transaction) int {
			if c := b.Date.Compare(a.Date.Time); c != 0 {
				return c
			}
			return cmpInt64(b.ID, a.ID)
		})
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// cloneRow copies the pointer fields so callers cannot mutate stored rows.
func cloneRow(t core.Transaction) core.Transaction {
	if t.OriginID != nil {
		v := *t.OriginID
		t.OriginID = &v
	}
	if t.ParentID != nil {
		v := *t.ParentID
		t.ParentID = &v
	}
	return t
}
