package repo

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertInt(v int) *Query {
	return NewQuery("INSERT INTO t (v) VALUES (?)", v)
}

func ints(n int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = i
	}
	return res
}

func TestBatchOperator_ExecuteQuery(t *testing.T) {
	testCases := []struct {
		name      string
		total     int
		size      int
		wantBegin int
		wantExecs []int // 每个事务中的语句数
	}{
		{name: "empty input", total: 0, size: 3, wantBegin: 0},
		{name: "exact multiple", total: 6, size: 3, wantBegin: 2, wantExecs: []int{3, 3}},
		{name: "trailing partial batch", total: 7, size: 3, wantBegin: 3, wantExecs: []int{3, 3, 1}},
		{name: "single partial batch", total: 2, size: 256, wantBegin: 1, wantExecs: []int{2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			db := newFakeDB(t, store)

			err := NewBatchOperator[int](db, tc.size).ExecuteQuery(context.Background(), slices.Values(ints(tc.total)), insertInt)
			require.NoError(t, err)

			assert.Equal(t, tc.wantBegin, store.count("begin"))
			assert.Equal(t, tc.wantBegin, store.count("commit"))
			assert.Zero(t, store.count("rollback"))
			for i, n := range tc.wantExecs {
				assert.Equal(t, n, store.count("exec "+strconv.Itoa(i+1)+" "), "tx %d", i+1)
			}
			assert.Len(t, store.Committed(), tc.total)
		})
	}
}

func TestBatchOperator_ExecuteQuery_FailureStopsConsumption(t *testing.T) {
	boom := errors.New("boom")
	store := &fakeStore{execErr: func(_ string, args []any) error {
		if args[0] == 4 {
			return boom
		}
		return nil
	}}
	db := newFakeDB(t, store)

	pulled := 0
	err := NewBatchOperator[int](db, 3).ExecuteQuery(context.Background(), seqCounter(ints(10), &pulled), insertInt)
	require.ErrorIs(t, err, boom)

	var storeErr *ferr.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "exec", storeErr.Op)

	// 第一批提交，第二批回滚，之后的输入不再读取
	assert.Equal(t, []any{0, 1, 2}, store.Committed())
	assert.Equal(t, 6, pulled)
	assert.Equal(t, 1, store.count("commit"))
	assert.Equal(t, []string{"rollback 2"}, filterEvents(store.Events(), "rollback"))
	// 失败的语句之后同批的语句不再执行
	assert.Equal(t, 2, store.count("exec 2 "))
}

func filterEvents(events []string, prefix string) []string {
	var res []string
	for _, e := range events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			res = append(res, e)
		}
	}
	return res
}

func TestBatchOperator_InvalidSize(t *testing.T) {
	db := newFakeDB(t, &fakeStore{})
	op := NewBatchOperator[int](db, 0)

	err := op.ExecuteQuery(context.Background(), slices.Values(ints(3)), insertInt)
	assert.ErrorIs(t, err, ErrBadBatchSize)
	err = op.ExecuteBatch(context.Background(), slices.Values(ints(3)), func(context.Context, []int) error { return nil })
	assert.ErrorIs(t, err, ErrBadBatchSize)
	err = op.PartitionExecute(context.Background(), slices.Values(ints(3)), func(int) bool { return true }, nil, nil)
	assert.ErrorIs(t, err, ErrBadBatchSize)

	_, err = Open(&fakeStore{}, WithBatchSize(-1))
	assert.ErrorIs(t, err, ErrBadBatchSize)
}

func TestBatchOperator_ExecuteBatch(t *testing.T) {
	db := newFakeDB(t, &fakeStore{})

	var mu sync.Mutex
	var sizes []int
	var seen []int
	err := NewBatchOperator[int](db, 4).ExecuteBatch(context.Background(), slices.Values(ints(10)),
		func(_ context.Context, batch []int) error {
			mu.Lock()
			defer mu.Unlock()
			sizes = append(sizes, len(batch))
			seen = append(seen, batch...)
			return nil
		})
	require.NoError(t, err)

	slices.Sort(sizes)
	slices.Sort(seen)
	assert.Equal(t, []int{2, 4, 4}, sizes)
	assert.Equal(t, ints(10), seen)
}

func TestBatchOperator_ExecuteBatch_FailureDoesNotCancelSiblings(t *testing.T) {
	db := newFakeDB(t, &fakeStore{})
	boom := errors.New("boom")

	// 三个分块全部开始之后才有分块返回
	var started sync.WaitGroup
	started.Add(3)
	var calls atomic.Int32
	var siblingErrs sync.Map
	err := NewBatchOperator[int](db, 2).ExecuteBatch(context.Background(), slices.Values(ints(6)),
		func(ctx context.Context, batch []int) error {
			calls.Add(1)
			started.Done()
			started.Wait()
			if batch[0] == 2 {
				return boom
			}
			time.Sleep(10 * time.Millisecond)
			siblingErrs.Store(batch[0], ctx.Err())
			return nil
		})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), calls.Load())
	siblingErrs.Range(func(_, v any) bool {
		assert.Nil(t, v)
		return true
	})
}

func TestBatchOperator_ExecuteBatch_FailureStopsDispatch(t *testing.T) {
	db := newFakeDB(t, &fakeStore{}, WithMaxConcurrentBatches(1))
	boom := errors.New("boom")

	pulled := 0
	var calls atomic.Int32
	err := NewBatchOperator[int](db, 1).ExecuteBatch(context.Background(), seqCounter(ints(10), &pulled),
		func(_ context.Context, batch []int) error {
			calls.Add(1)
			if batch[0] == 0 {
				return boom
			}
			return nil
		})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
	assert.LessOrEqual(t, pulled, 3)
}

func TestBatchOperator_ExecuteBatch_CancelledContext(t *testing.T) {
	db := newFakeDB(t, &fakeStore{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := NewBatchOperator[int](db, 2).ExecuteBatch(ctx, slices.Values(ints(4)),
		func(context.Context, []int) error {
			calls.Add(1)
			return nil
		})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestBatchOperator_ExecuteBatch_RecoversPanic(t *testing.T) {
	db := newFakeDB(t, &fakeStore{})
	err := NewBatchOperator[int](db, 2).ExecuteBatch(context.Background(), slices.Values(ints(2)),
		func(context.Context, []int) error { panic("worker exploded") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker exploded")
}

func TestBatchOperator_ExecuteBatch_ConcurrencyLimit(t *testing.T) {
	db := newFakeDB(t, &fakeStore{}, WithMaxConcurrentBatches(2))

	var active, peak atomic.Int32
	err := NewBatchOperator[int](db, 1).ExecuteBatch(context.Background(), slices.Values(ints(8)),
		func(context.Context, []int) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return nil
		})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestBatchOperator_PartitionExecute(t *testing.T) {
	db := newFakeDB(t, &fakeStore{})

	var mu sync.Mutex
	var even, odd []int
	err := NewBatchOperator[int](db, 2).PartitionExecute(context.Background(), slices.Values(ints(7)),
		func(v int) bool { return v%2 == 0 },
		func(_ context.Context, batch []int) error {
			mu.Lock()
			defer mu.Unlock()
			assert.LessOrEqual(t, len(batch), 2)
			even = append(even, batch...)
			return nil
		},
		func(_ context.Context, batch []int) error {
			mu.Lock()
			defer mu.Unlock()
			assert.LessOrEqual(t, len(batch), 2)
			odd = append(odd, batch...)
			return nil
		})
	require.NoError(t, err)

	slices.Sort(even)
	slices.Sort(odd)
	assert.Equal(t, []int{0, 2, 4, 6}, even)
	assert.Equal(t, []int{1, 3, 5}, odd)
}

func TestBatchOperator_PartitionExecute_Failure(t *testing.T) {
	db := newFakeDB(t, &fakeStore{})
	boom := errors.New("boom")

	err := NewBatchOperator[int](db, 2).PartitionExecute(context.Background(), slices.Values(ints(4)),
		func(v int) bool { return v < 2 },
		func(context.Context, []int) error { return nil },
		func(context.Context, []int) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestBatchOperator_PartitionExecute_FailureStopsDispatch(t *testing.T) {
	db := newFakeDB(t, &fakeStore{}, WithMaxConcurrentBatches(1))
	boom := errors.New("boom")

	pulled := 0
	var calls atomic.Int32
	err := NewBatchOperator[int](db, 1).PartitionExecute(context.Background(), seqCounter(ints(10), &pulled),
		func(v int) bool { return v%2 == 0 },
		func(context.Context, []int) error {
			calls.Add(1)
			return boom
		},
		func(context.Context, []int) error {
			calls.Add(1)
			return nil
		})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
	assert.LessOrEqual(t, pulled, 3)
}
