package postgres

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isUniqueViolation also falls back to message matching: gorm only
// translates the error when the dialector recognizes the constraint.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
