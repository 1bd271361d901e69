package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: pgUniqueViolation}
	other := &pgconn.PgError{Code: "23503"}

	assert.True(t, isUniqueViolation(unique))
	assert.True(t, isUniqueViolation(fmt.Errorf("saving: %w", unique)))
	assert.False(t, isUniqueViolation(other))
	assert.False(t, isUniqueViolation(assert.AnError))
}

func TestNullableString(t *testing.T) {
	assert.Nil(t, nullableString(""))
	assert.Equal(t, "bio", nullableString("bio"))

	s := "x"
	assert.Equal(t, "x", derefString(&s))
	assert.Equal(t, "", derefString(nil))
}

func TestIDStrings(t *testing.T) {
	a, b := domain.NewUserID(), domain.NewUserID()
	assert.Equal(t, []string{a.String(), b.String()}, idStrings([]domain.UserID{a, b}))
	assert.Empty(t, idStrings([]domain.UserID{}))
}
