package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

// ErrDuplicate is returned when an insert or update violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// ErrInsufficientBalance is returned when a point reservation would overdraw an ambassador.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrStaleStatus is returned when a conditional status update finds the row already moved on.
var ErrStaleStatus = errors.New("status changed concurrently")

// ErrTokenReused is returned when a refresh token is rotated after it was already spent.
var ErrTokenReused = errors.New("refresh token already used")

// DuplicateError names the violated constraint and matches ErrDuplicate.
type DuplicateError struct {
	Constraint string
	Err        error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate record (%s)", e.Constraint)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

const uniqueViolation = "23505"

// mapUniqueViolation converts a PostgreSQL unique violation into a *DuplicateError, leaving other errors untouched.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return &DuplicateError{Constraint: pqErr.Constraint, Err: err}
	}
	return err
}

// ConstraintOf returns the violated constraint name when err is a duplicate error.
func ConstraintOf(err error) string {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Constraint
	}
	return ""
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns user input into a substring ILIKE pattern with its wildcards escaped.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}

func pageWindow(page, size int) (limit, offset int) {
	page, size = models.NormalizePage(page, size)
	return size, (page - 1) * size
}

func sortColumn(requested string, allowed map[string]string, fallback string) string {
	if col, ok := allowed[requested]; ok {
		return col
	}
	return fallback
}

func sortDirection(order string) string {
	switch order {
	case "asc", "ASC":
		return "ASC"
	default:
		return "DESC"
	}
}
