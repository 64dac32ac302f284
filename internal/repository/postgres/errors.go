package postgres

import "strings"

// isUniqueViolation reports whether err is a unique-constraint violation
// involving the named column or index.
func isUniqueViolation(err error, name string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") && strings.Contains(msg, name)
}
