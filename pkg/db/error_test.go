package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm duplicated", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "postgres unique", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "postgres exclusion", err: &pgconn.PgError{Code: "23P01"}, want: false},
		{name: "sqlite unique", err: errors.New("UNIQUE constraint failed: weekday_rules.setting_id"), want: true},
		{name: "other", err: errors.New("connection reset"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicateKeyErr(tt.err))
		})
	}
}

func TestIsExclusionViolation(t *testing.T) {
	wrapped := fmt.Errorf("create interval: %w", &pgconn.PgError{Code: "23P01", ConstraintName: "interval_base_rates_no_overlap"})

	assert.True(t, IsExclusionViolation(wrapped))
	assert.False(t, IsExclusionViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsExclusionViolation(errors.New("23P01")))
	assert.False(t, IsExclusionViolation(nil))
}
