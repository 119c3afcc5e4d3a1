package services

import (
	"errors"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

type SyncErrorType string

const (
	SyncErrUniqueViolation     SyncErrorType = "UNIQUE_VIOLATION"
	SyncErrForeignKeyViolation SyncErrorType = "FOREIGN_KEY_VIOLATION"
	SyncErrOther               SyncErrorType = "OTHER"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// SyncError is the per-record failure reported back to sync clients.
type SyncError struct {
	Type    SyncErrorType `json:"type"`
	Field   string        `json:"field,omitempty"`
	Message string        `json:"message"`
	Code    string        `json:"code,omitempty"`
}

func otherError(message string) *SyncError {
	return &SyncError{Type: SyncErrOther, Message: message}
}

var (
	uniqueSignature     = regexp.MustCompile(`(?i)duplicate key value|unique`)
	foreignKeySignature = regexp.MustCompile(`(?i)foreign key`)
)

// ClassifyDatabaseError maps a driver error onto the sync error taxonomy.
// SQLSTATE codes win when the driver exposes them; otherwise translated gorm
// errors and finally message signatures decide.
func ClassifyDatabaseError(err error) SyncError {
	if err == nil {
		return SyncError{Type: SyncErrOther, Message: "Unknown database error"}
	}

	var fieldErr *utils.FieldError
	if errors.As(err, &fieldErr) {
		return SyncError{Type: SyncErrOther, Field: fieldErr.Field, Message: fieldErr.Error()}
	}

	var code, field string
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
		field = pgErr.ColumnName
		if field == "" {
			field = pgErr.ConstraintName
		}
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
		field = pqErr.Column
		if field == "" {
			field = pqErr.Constraint
		}
	}

	msg := err.Error()
	switch {
	case code == pgUniqueViolation || errors.Is(err, gorm.ErrDuplicatedKey) || uniqueSignature.MatchString(msg):
		return SyncError{Type: SyncErrUniqueViolation, Field: field, Message: "Unique constraint violation", Code: code}
	case code == pgForeignKeyViolation || errors.Is(err, gorm.ErrForeignKeyViolated) || foreignKeySignature.MatchString(msg):
		return SyncError{Type: SyncErrForeignKeyViolation, Field: field, Message: "Referenced data missing or invalid", Code: code}
	default:
		return SyncError{Type: SyncErrOther, Message: msg, Code: code}
	}
}
