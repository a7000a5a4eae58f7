package repo

import (
	"errors"

	"github.com/fyerfyer/fyer-repo/repo/internal/ferr"
)

var (
	ErrNoRows               = ferr.ErrNoRows
	ErrUniqueViolation      = ferr.ErrUniqueViolation
	ErrNilQuery             = ferr.ErrNilQuery
	ErrNilStore             = ferr.ErrNilStore
	ErrTxDone               = ferr.ErrTxDone
	ErrTxFinalizedByAction  = ferr.ErrTxFinalizedByAction
	ErrQueryConsumed        = ferr.ErrQueryConsumed
	ErrSharedTxOutstanding  = ferr.ErrSharedTxOutstanding
	ErrTxRefReleased        = ferr.ErrTxRefReleased
	ErrLockAcquisition      = ferr.ErrLockAcquisition
	ErrFilterRejected       = ferr.ErrFilterRejected
	ErrUnsupportedOperation = ferr.ErrUnsupportedOperation
	ErrBadBatchSize         = ferr.ErrBadBatchSize
	ErrBadConcurrency       = ferr.ErrBadConcurrency
)

type (
	// StoreError 底层存储错误，使用 errors.As 获取
	StoreError = ferr.StoreError
	// TxErrors TryTransaction 返回的错误列表
	TxErrors = ferr.TxErrors
)

// IsResourceStateError 是否是资源状态类错误，这类错误不应重试
func IsResourceStateError(err error) bool {
	for _, target := range []error{ErrTxDone, ErrTxFinalizedByAction, ErrQueryConsumed, ErrSharedTxOutstanding, ErrTxRefReleased} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
