package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repository reacts to.
const (
	errDupEntry        = 1062 // ER_DUP_ENTRY
	errLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	errLockDeadlock    = 1213 // ER_LOCK_DEADLOCK
	errNoReferencedRow = 1452 // ER_NO_REFERENCED_ROW_2
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// isDuplicateEntry reports a unique key violation.
func isDuplicateEntry(err error) bool {
	return mysqlCode(err) == errDupEntry
}

// isMissingParent reports a foreign key violation on insert or update.
func isMissingParent(err error) bool {
	return mysqlCode(err) == errNoReferencedRow
}

// isRetryable reports errors after which MySQL has rolled back the
// transaction and replaying it may succeed.
func isRetryable(err error) bool {
	switch mysqlCode(err) {
	case errLockDeadlock, errLockWaitTimeout:
		return true
	}
	return false
}
