package ferr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoRows          = errors.New("repo: data not found")
	ErrUniqueViolation = errors.New("repo: unique constraint violated")
	ErrNilQuery        = errors.New("repo: query is nil")
	ErrNilStore        = errors.New("repo: store is nil")
)

// 资源状态类错误，属于调用方契约违背，不可重试
var (
	ErrTxDone              = errors.New("repo: transaction has already been committed or rolled back")
	ErrTxFinalizedByAction = errors.New("repo: transaction was finalized inside an action owned by the runner")
	ErrQueryConsumed       = errors.New("repo: query has already been executed")
	ErrSharedTxOutstanding = errors.New("repo: shared transaction still referenced at finalize")
	ErrTxRefReleased       = errors.New("repo: shared transaction reference already released")
)

var (
	ErrLockAcquisition      = errors.New("repo: could not regain exclusive ownership of the shared transaction")
	ErrFilterRejected       = errors.New("repo: can not delete from table with an empty filter")
	ErrUnsupportedOperation = errors.New("repo: operation not supported by querier")
)

// 配置类错误，由 ErrInvalidBatchSize 等函数携带具体取值
var (
	ErrBadBatchSize   = errors.New("repo: invalid batch size")
	ErrBadConcurrency = errors.New("repo: invalid concurrency limit")
)

// StoreError 底层存储返回的错误
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("repo: store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError 包装存储错误，已是 StoreError 的原样返回
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// TxErrors 批量收集的错误列表
type TxErrors []error

func (e TxErrors) Error() string {
	switch len(e) {
	case 0:
		return "repo: no errors"
	case 1:
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "repo: %d errors occurred:", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "\n\t[%d] %v", i, err)
	}
	return sb.String()
}

func (e TxErrors) Unwrap() []error {
	return e
}

func ErrInvalidBatchSize(n int) error {
	return fmt.Errorf("%w %d, must be positive", ErrBadBatchSize, n)
}

func ErrInvalidConcurrency(n int) error {
	return fmt.Errorf("%w %d, must not be negative", ErrBadConcurrency, n)
}

func ErrActionPanicked(p any) error {
	return fmt.Errorf("repo: action panicked: %v", p)
}

func ErrInvalidFilterColumn(col string) error {
	return fmt.Errorf("repo: invalid filter column %q", col)
}
