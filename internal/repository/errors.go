// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers to distinguish
// between different failure scenarios without inspecting driver errors.
// For example, ErrForbidden indicates that a row exists but belongs to
// someone else, while ErrBookingNotFound means it does not exist at all.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.
var ErrForbidden = errors.New("forbidden")

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameExists  = errors.New("username already exists")
	ErrEmailExists     = errors.New("email already exists")
	ErrPlaceNotFound   = errors.New("place not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentExists   = errors.New("payment already recorded")
)

// MySQL server error numbers the repositories translate.
const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}
