package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitTrackerMarkIfNew(t *testing.T) {
	t.Parallel()

	tracker := NewVisitTracker()
	assert.True(t, tracker.MarkIfNew("https://example.org/judgments/?page=2"))
	assert.False(t, tracker.MarkIfNew("https://example.org/judgments/?page=2"))
	assert.True(t, tracker.MarkIfNew("https://example.org/judgments/?page=3"))
	assert.False(t, tracker.MarkIfNew(""))
}

func TestPauseHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	require.ErrorIs(t, Pause(ctx, time.Minute), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, Pause(context.Background(), time.Millisecond))
	require.NoError(t, Pause(context.Background(), 0))
}
