package server

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamRegistryPutGet(t *testing.T) {
	t.Parallel()

	reg := NewStreamRegistry(time.Hour)
	info := StreamInfo{
		ID:        uuid.New().String(),
		VideoPath: "uploads/drone.mp4",
		LogPath:   "tracking_results/tracking.csv",
		CreatedAt: time.Now(),
	}
	reg.Put(info)

	got, ok := reg.Get(info.ID)
	require.True(t, ok)
	assert.Equal(t, info, got)
	assert.Equal(t, 1, reg.Len())
}

func TestStreamRegistryUnknownID(t *testing.T) {
	t.Parallel()

	reg := NewStreamRegistry(time.Hour)
	_, ok := reg.Get("nope")
	assert.False(t, ok)
}

func TestStreamRegistryExpiry(t *testing.T) {
	t.Parallel()

	reg := NewStreamRegistry(20 * time.Millisecond)
	reg.Put(StreamInfo{ID: "short-lived"})

	_, ok := reg.Get("short-lived")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = reg.Get("short-lived")
	assert.False(t, ok, "entries past their TTL are gone even before cleanup runs")
}
