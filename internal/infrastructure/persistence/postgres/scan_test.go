package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

func TestFromNullDate_KeepsStoredCalendarDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	timeutil.SetLocation(loc)
	t.Cleanup(func() { timeutil.SetLocation(time.UTC) })

	// pgx scans DATE as UTC midnight.
	scanned := time.Date(2004, 3, 1, 0, 0, 0, 0, time.UTC)
	got := fromNullDate(&scanned)

	assert.Equal(t, timeutil.Date(2004, 3, 1), got)
	assert.Equal(t, "2004-03-01", timeutil.FormatDateStr(got))
	assert.True(t, fromNullDate(nil).IsZero())

	meet := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 19, timeutil.AgeOn(got, fromNullDate(&meet)))
}
