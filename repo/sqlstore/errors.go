package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyerfyer/fyer-repo/repo"
	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const mysqlDupEntry = 1062

// classify 把驱动的唯一约束错误标记为 repo.ErrUniqueViolation
func classify(err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDupEntry {
		return fmt.Errorf("%w: %w", repo.ErrUniqueViolation, err)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", repo.ErrUniqueViolation, err)
		case sqlite3.SQLITE_CONSTRAINT:
			// 未开启扩展错误码时只能从消息判断
			if strings.Contains(liteErr.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: %w", repo.ErrUniqueViolation, err)
			}
		}
	}
	return err
}
