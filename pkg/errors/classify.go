package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const genericMessage = "internal error, try again"

// Postgres SQLSTATE codes the storage layer can surface.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgStringTooLong       = "22001"
	pgInvalidTextRep      = "22P02"
)

// Classify maps any error reaching a transport boundary to an AppError.
// Errors that are already AppErrors pass through untouched; known storage
// failures become user-facing messages; everything else collapses into a
// generic internal error that keeps the original for logging.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("Record", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return alreadyExists(err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return BadRequest("Referenced record does not exist", err)
	case errors.Is(err, gorm.ErrInvalidData), errors.Is(err, gorm.ErrInvalidValue):
		return BadRequest("Invalid value supplied", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return alreadyExists(err)
		case pgForeignKeyViolation:
			return BadRequest("Referenced record does not exist", err)
		case pgNotNullViolation:
			return BadRequest("A required field is missing", err)
		case pgStringTooLong:
			return BadRequest("Value too long for field", err)
		case pgInvalidTextRep:
			return BadRequest("Invalid identifier format", err)
		}
	}

	return Internal(genericMessage, err)
}

func alreadyExists(err error) *AppError {
	appErr := Conflict("Resource already exists")
	appErr.Err = err
	return appErr
}
