package codplayer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStations() []RadioStation {
	return []RadioStation{
		{Name: "first", URL: "http://first.invalid/stream.mp3"},
		{Name: "second", URL: "http://second.invalid/stream.mp3"},
	}
}

func TestRadioSource_NotPausable(t *testing.T) {
	src := NewRadioSource(twoStations(), 0, nil)
	assert.False(t, src.Pausable())
}

func TestRadioSource_NextPrevWrapAround(t *testing.T) {
	src := NewRadioSource(twoStations(), 1, nil)

	next, ok := src.NextSource(PlayerState{})
	require.True(t, ok)
	assert.Equal(t, 0, next.(*RadioSource).index)

	prev, ok := src.PrevSource(PlayerState{})
	require.True(t, ok)
	assert.Equal(t, 0, prev.(*RadioSource).index)
}

func TestRadioSource_InitialStateNamesStation(t *testing.T) {
	src := NewRadioSource(twoStations(), 0, nil)
	state := src.InitialState(PlayerState{})
	assert.Equal(t, StateWorking, state.State)
	assert.Equal(t, "radio:first", state.StreamName)
}

func TestRadioSource_EmptyStationListClosesImmediately(t *testing.T) {
	src := NewRadioSource(nil, 0, nil)
	_, ok := src.NextSource(PlayerState{})
	assert.False(t, ok)

	ch := src.Packets(context.Background())
	_, open := <-ch
	assert.False(t, open)
}

func TestRadioSource_RejectsUnsupportedContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	src := NewRadioSource([]RadioStation{{Name: "bad", URL: srv.URL}}, 0, nil)
	out := make(chan *AudioPacket)
	defer close(out)

	_, _, err := src.playStream(context.Background(), out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedStream))
}

func TestRadioSource_StalledFlagSetByWatchdog(t *testing.T) {
	src := NewRadioSource(twoStations(), 0, nil)
	assert.False(t, src.stalled.Load())
	src.Stalled()
	assert.True(t, src.stalled.Load())
}
