package domain_test

import (
	"testing"
	"time"

	"alcyxob/yoga-studio/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := domain.ParseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, domain.Date("2026-03-15"), d)

	for _, bad := range []string{"", "15-03-2026", "2026-3-5", "2026-02-30", "tomorrow"} {
		_, err := domain.ParseDate(bad)
		assert.Error(t, err, "ParseDate(%q)", bad)
	}
}

func TestDate_Ordering(t *testing.T) {
	// Fixed-width strings compare lexicographically in date order, across
	// month and year boundaries.
	assert.True(t, domain.Date("2026-09-30").Before("2026-10-01"))
	assert.True(t, domain.Date("2027-01-01").After("2026-12-31"))
	assert.False(t, domain.Date("2026-09-30").Before("2026-09-30"))
}

func TestDate_AddDays(t *testing.T) {
	assert.Equal(t, domain.Date("2026-03-01"), domain.Date("2026-02-28").AddDays(1))
	assert.Equal(t, domain.Date("2028-02-29"), domain.Date("2028-02-28").AddDays(1))
	assert.Equal(t, domain.Date("2026-12-31"), domain.Date("2027-01-02").AddDays(-2))
	assert.Equal(t, domain.Date("2026-06-15"), domain.Date("2026-06-15").AddDays(0))
}

func TestDate_DaysSince(t *testing.T) {
	d := domain.Date("2026-09-15")
	assert.Equal(t, 0, d.DaysSince("2026-09-15"))
	assert.Equal(t, 1, d.DaysSince("2026-09-14"))
	assert.Equal(t, 31, d.DaysSince("2026-08-15"))
	assert.Equal(t, -1, d.DaysSince("2026-09-16"))
}

func TestDateOf(t *testing.T) {
	// Instants truncate to their UTC day regardless of the wall-clock zone.
	loc := time.FixedZone("UTC+5", 5*3600)
	late := time.Date(2026, 9, 16, 2, 30, 0, 0, loc) // 2026-09-15T21:30Z
	assert.Equal(t, domain.Date("2026-09-15"), domain.DateOf(late))

	noon := time.Date(2026, 9, 16, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, domain.Date("2026-09-16"), domain.DateOf(noon))
}

func TestDate_IsZero(t *testing.T) {
	assert.True(t, domain.Date("").IsZero())
	assert.False(t, domain.Date("2026-01-01").IsZero())
}
