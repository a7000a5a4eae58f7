package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fyerfyer/fyer-repo/logger"
	"github.com/stretchr/testify/require"
)

// fakeStore 记录所有事务事件，提交时把事务内语句的参数记入 committed
type fakeStore struct {
	mu        sync.Mutex
	events    []string
	committed []any
	txSeq     int

	execErr     func(sql string, args []any) error
	beginErr    error
	commitErr   error
	rollbackErr error
}

func (s *fakeStore) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, fmt.Sprintf(format, args...))
}

func (s *fakeStore) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *fakeStore) Committed() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.committed...)
}

func (s *fakeStore) count(prefix string) int {
	n := 0
	for _, e := range s.Events() {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (s *fakeStore) exec(sql string, args []any) (Result, error) {
	if s.execErr != nil {
		if err := s.execErr(sql, args); err != nil {
			return Result{}, err
		}
	}
	return NewResult(0, 1), nil
}

func (s *fakeStore) ExecContext(_ context.Context, sql string, args ...any) (Result, error) {
	s.record("exec %s", sql)
	res, err := s.exec(sql, args)
	if err == nil {
		s.mu.Lock()
		s.committed = append(s.committed, args...)
		s.mu.Unlock()
	}
	return res, err
}

func (s *fakeStore) QueryContext(_ context.Context, sql string, _ ...any) (Rows, error) {
	s.record("query %s", sql)
	return &fakeRows{}, nil
}

func (s *fakeStore) BeginTx(context.Context) (TxConn, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.mu.Lock()
	s.txSeq++
	id := s.txSeq
	s.mu.Unlock()
	s.record("begin %d", id)
	return &fakeTx{store: s, id: id}, nil
}

type fakeTx struct {
	store   *fakeStore
	id      int
	mu      sync.Mutex
	pending []any
}

func (t *fakeTx) ExecContext(_ context.Context, sql string, args ...any) (Result, error) {
	t.store.record("exec %d %s", t.id, sql)
	res, err := t.store.exec(sql, args)
	if err == nil {
		t.mu.Lock()
		t.pending = append(t.pending, args...)
		t.mu.Unlock()
	}
	return res, err
}

func (t *fakeTx) QueryContext(_ context.Context, sql string, _ ...any) (Rows, error) {
	t.store.record("query %d %s", t.id, sql)
	return &fakeRows{}, nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.store.record("commit %d", t.id)
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store.mu.Lock()
	t.store.committed = append(t.store.committed, t.pending...)
	t.store.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.store.record("rollback %d", t.id)
	return t.store.rollbackErr
}

// fakeRows 空结果集
type fakeRows struct {
	closed bool
}

func (r *fakeRows) Close() error { r.closed = true; return nil }
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Next() bool { return false }
func (r *fakeRows) Columns() ([]string, error) { return []string{"id"}, nil }
func (r *fakeRows) Scan(...any) error { return errors.New("no rows") }
func (r *fakeRows) NextResultSet() bool { return false }

func newFakeDB(t interface {
	require.TestingT
	Helper()
}, store *fakeStore, opts ...DBOption) *DB {
	t.Helper()
	db, err := Open(store, append([]DBOption{WithLogger(logger.NewNop())}, opts...)...)
	require.NoError(t, err)
	return db
}

// seqCounter 记录被读取了多少个元素
func seqCounter[T any](items []T, pulled *int) func(yield func(T) bool) {
	return func(yield func(T) bool) {
		for _, it := range items {
			*pulled++
			if !yield(it) {
				return
			}
		}
	}
}
