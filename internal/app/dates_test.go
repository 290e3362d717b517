package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

	for _, s := range []string{"", "2024-3-5", "05/03/2024", "2024-02-30"} {
		_, err := ParseDate(s)
		assert.ErrorIs(t, err, ErrInvalidDate, s)
	}
}

func TestParseSpan(t *testing.T) {
	s, e, err := ParseSpan("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.True(t, s.Before(e))

	_, _, err = ParseSpan("2024-02-01", "2024-01-31")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
