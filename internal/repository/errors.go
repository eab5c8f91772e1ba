package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by repositories for constraint violations the
// service layer maps onto domain errors.
var (
	ErrDuplicateAssignment = errors.New("assignment already exists")
	ErrSectionInUse        = errors.New("section is still referenced")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == pqForeignKeyViolation
}
