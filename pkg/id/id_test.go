package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortable(t *testing.T) {
	t.Parallel()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = New()
	}
	assert.True(t, sort.StringsAreSorted(ids))
	assert.Len(t, ids[0], 26)
}

func TestAtRoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 9, 31, 0, 0, time.UTC)
	got, err := Time(At(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
}
