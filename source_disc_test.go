package codplayer

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ripRaceDisc() *Disc {
	return &Disc{
		DiscID: "ripping-disc",
		Tracks: []Track{
			{Number: 1, Length: 4 * AudioFramesPerCDFrame, FileOffset: 0},
		},
	}
}

// TestDiscSource_WaitsForRippingData exercises the rip-ahead-of-playback
// race: the data file doesn't exist (then is short) while a rip is
// reported in progress, and DiscSource must retry rather than fail.
func TestDiscSource_WaitsForRippingData(t *testing.T) {
	old := ripRetryDelay
	ripRetryDelay = 5 * time.Millisecond
	defer func() { ripRetryDelay = old }()

	dir := t.TempDir()
	path := filepath.Join(dir, "disc.cdr")
	disc := ripRaceDisc()
	want := disc.Tracks[0].Length * RedbookFormat.BytesPerFrame()

	var ripping atomic.Bool
	ripping.Store(true)

	go func() {
		time.Sleep(20 * time.Millisecond)
		partial := make([]byte, want/2)
		require.NoError(t, os.WriteFile(path, partial, 0o644))

		time.Sleep(20 * time.Millisecond)
		full := make([]byte, want)
		require.NoError(t, os.WriteFile(path, full, 0o644))
		ripping.Store(false)
	}()

	src := NewDiscSource(disc, path, 1, ripping.Load, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var packets []*AudioPacket
	for pkt := range src.Packets(ctx) {
		packets = append(packets, pkt)
	}

	require.NoError(t, src.Err())
	require.NotEmpty(t, packets)
	assert.Equal(t, 0, src.ResumeTrack())
}

// TestDiscSource_GivesUpWhenRipStops verifies a short file with no rip
// in progress is reported as a source error rather than retried forever.
func TestDiscSource_GivesUpWhenRipStops(t *testing.T) {
	old := ripRetryDelay
	ripRetryDelay = 5 * time.Millisecond
	defer func() { ripRetryDelay = old }()

	dir := t.TempDir()
	path := filepath.Join(dir, "disc.cdr")
	disc := ripRaceDisc()
	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))

	notRipping := func() bool { return false }
	src := NewDiscSource(disc, path, 1, notRipping, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for range src.Packets(ctx) {
	}

	require.Error(t, src.Err())
}

func TestDiscSource_NextPrevPolicy(t *testing.T) {
	disc := &Disc{
		Tracks: []Track{
			{Number: 1, Length: 100},
			{Number: 2, Length: 100},
			{Number: 3, Length: 100},
		},
	}
	src := NewDiscSource(disc, "", 2, nil, nil)

	next, ok := src.NextSource(PlayerState{State: StatePlay, Track: 2})
	require.True(t, ok)
	assert.Equal(t, 3, next.(*DiscSource).startTrack)

	prevSameTrack, ok := src.PrevSource(PlayerState{State: StatePlay, Track: 2, PositionSeconds: 5})
	require.True(t, ok)
	assert.Equal(t, 2, prevSameTrack.(*DiscSource).startTrack)

	prevEarlier, ok := src.PrevSource(PlayerState{State: StatePlay, Track: 2, PositionSeconds: 1})
	require.True(t, ok)
	assert.Equal(t, 1, prevEarlier.(*DiscSource).startTrack)

	fromStop, ok := src.NextSource(PlayerState{State: StateStop})
	require.True(t, ok)
	assert.Equal(t, 1, fromStop.(*DiscSource).startTrack)
}
