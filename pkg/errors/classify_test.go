package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"app error passes through", Forbidden("nope", nil), CodeForbidden, http.StatusForbidden},
		{"record not found", gorm.ErrRecordNotFound, CodeNotFound, http.StatusNotFound},
		{"duplicate key", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), CodeConflict, http.StatusConflict},
		{"foreign key", gorm.ErrForeignKeyViolated, CodeBadRequest, http.StatusBadRequest},
		{"pg unique", &pgconn.PgError{Code: "23505"}, CodeConflict, http.StatusConflict},
		{"pg missing relation", &pgconn.PgError{Code: "23503"}, CodeBadRequest, http.StatusBadRequest},
		{"pg value too long", &pgconn.PgError{Code: "22001"}, CodeBadRequest, http.StatusBadRequest},
		{"pg invalid uuid", &pgconn.PgError{Code: "22P02"}, CodeBadRequest, http.StatusBadRequest},
		{"unknown", fmt.Errorf("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestClassifyUnknownHidesMessage(t *testing.T) {
	got := Classify(fmt.Errorf("pq: connection refused at 10.0.0.3"))
	assert.Equal(t, "internal error, try again", got.Message)
	assert.ErrorContains(t, got.Unwrap(), "10.0.0.3")
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("Chat", nil))
	assert.True(t, Is(err, CodeNotFound))
	assert.False(t, Is(err, CodeForbidden))
	assert.Nil(t, Classify(nil))
}
