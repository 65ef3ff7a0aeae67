package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codplayer/codplayer-go"
)

func testExternalID(t *testing.T) string {
	t.Helper()
	internal := "0123456789abcdef0123456789abcdef01234567"
	external, err := ExternalID(internal)
	require.NoError(t, err)
	return external
}

func TestSaveLoadDiscRoundTrip(t *testing.T) {
	root := t.TempDir()
	discID := testExternalID(t)

	disc := &codplayer.Disc{
		DiscID:      discID,
		RippedAudio: true,
		Info:        codplayer.AlbumInfo{Title: "Test Album", Artist: "Test Artist"},
		Tracks: []codplayer.Track{
			{Number: 1, Length: 1000, Info: codplayer.SongInfo{Title: "One"}},
			{Number: 2, Length: 2000, Index: []int{1500}, Info: codplayer.SongInfo{Title: "Two"}},
		},
	}

	require.NoError(t, SaveDisc(root, disc))

	loaded, err := LoadDisc(root, discID)
	require.NoError(t, err)
	assert.Equal(t, discID, loaded.DiscID)
	assert.True(t, loaded.RippedAudio)
	assert.Equal(t, "Test Album", loaded.Info.Title)
	require.Len(t, loaded.Tracks, 2)
	assert.Equal(t, "Two", loaded.Tracks[1].Info.Title)
	assert.Equal(t, []int{1500}, loaded.Tracks[1].Index)
}

func TestSaveDisc_RejectsInvalidDisc(t *testing.T) {
	root := t.TempDir()
	disc := &codplayer.Disc{
		DiscID: testExternalID(t),
		Tracks: []codplayer.Track{
			{Number: 2, Length: 100},
		},
	}
	assert.Error(t, SaveDisc(root, disc))
}

func TestLoadDisc_MissingRecord(t *testing.T) {
	root := t.TempDir()
	_, err := LoadDisc(root, testExternalID(t))
	assert.Error(t, err)
}
