package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGoogleEvent(t *testing.T) {
	start := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	ev := ToGoogleEvent(Event{
		Title:     "Go concurrency office hours",
		Start:     start,
		Duration:  90 * time.Minute,
		Location:  "https://meet.example/abc",
		Attendees: []string{"mentor@example.com", ""},
	}, "Asia/Kolkata")

	assert.Equal(t, "Go concurrency office hours", ev.Summary)
	assert.Equal(t, "2026-03-10T15:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "2026-03-10T16:30:00Z", ev.End.DateTime)
	assert.Equal(t, "Asia/Kolkata", ev.Start.TimeZone)
	require.Len(t, ev.Attendees, 1)
}

func TestToGoogleEventDefaultsDuration(t *testing.T) {
	start := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	ev := ToGoogleEvent(Event{Title: "x", Start: start}, "")
	assert.Equal(t, "2026-03-10T16:00:00Z", ev.End.DateTime)
}

func TestNoop(t *testing.T) {
	id, err := Noop{}.CreateEvent(context.Background(), Event{})
	require.NoError(t, err)
	assert.Empty(t, id)
}
