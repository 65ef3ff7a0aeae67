package codplayer

import "fmt"

// AlbumInfo and SongInfo carry optional editorial metadata attached
// to a disc or a track, mirroring the fields a library record may
// hold once tagged from an external metadata source.
type AlbumInfo struct {
	Title  string
	Artist string
}

type SongInfo struct {
	Title  string
	Artist string
}

// Track describes one track of a Disc's edit list. All numeric fields
// are in audio frames (one sample per channel).
type Track struct {
	Number int // 1-based position within Disc.Tracks

	FileOffset int // start of the track's audio in the data file
	FileLength int // length of the track's audio in the data file, in frames

	Length int // playable length; >= FileLength

	PregapOffset  int   // position where index 1 begins; 0 if no pregap
	PregapSilence int   // leading frames synthesised as zero rather than read
	Index         []int // additional index marks, strictly increasing, >= PregapOffset

	PauseAfter bool // pause cleanly at the end of this track
	Skip       bool // omit from play order

	Info SongInfo
}

// Validate checks the per-track invariants from the edit-list contract.
func (t Track) Validate() error {
	if t.PregapSilence < 0 || t.PregapSilence > t.PregapOffset {
		return fmt.Errorf("codplayer: track %d: pregap_silence %d out of range [0, %d]", t.Number, t.PregapSilence, t.PregapOffset)
	}
	if t.PregapOffset >= t.Length {
		return fmt.Errorf("codplayer: track %d: pregap_offset %d >= length %d", t.Number, t.PregapOffset, t.Length)
	}
	prev := t.PregapOffset - 1
	for _, idx := range t.Index {
		if idx <= prev {
			return fmt.Errorf("codplayer: track %d: index marks not strictly increasing from pregap_offset", t.Number)
		}
		prev = idx
	}
	return nil
}

// Disc is a content-addressed, ripped (or ripping) audio CD: an
// ordered edit list of tracks backed by one interleaved PCM data file.
type Disc struct {
	DiscID       string // 28-char external disc id (MusicBrainz-style)
	SourceDiscID string // the id as originally looked up, before edits

	Tracks []Track

	DataFile string // name of the raw PCM data file

	RippedAudio bool // the full data file has been written
	RippedTOC   bool // the table of contents has been read

	Info AlbumInfo
}

// DataFileSize returns the expected size in bytes of the data file
// once ripping is complete.
func (d Disc) DataFileSize() int64 {
	var frames int64
	for _, t := range d.Tracks {
		frames += int64(t.FileLength)
	}
	return frames * int64(RedbookFormat.BytesPerFrame())
}

// Validate checks 1-based contiguous track numbering and each track's
// own invariants (Track.Validate). It does not look at the data file:
// whether the track file lengths sum to its actual size is not checked.
func (d Disc) Validate() error {
	for i, t := range d.Tracks {
		if t.Number != i+1 {
			return fmt.Errorf("codplayer: disc %s: track[%d].number == %d, want %d", d.DiscID, i, t.Number, i+1)
		}
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TrackByNumber returns the track with the given 1-based number, or
// false if none exists.
func (d Disc) TrackByNumber(n int) (Track, bool) {
	if n < 1 || n > len(d.Tracks) {
		return Track{}, false
	}
	return d.Tracks[n-1], true
}

// NextPlayable returns the next non-skipped track number after n, or
// 0 if none remains.
func (d Disc) NextPlayable(n int) int {
	for i := n + 1; i <= len(d.Tracks); i++ {
		if !d.Tracks[i-1].Skip {
			return i
		}
	}
	return 0
}

// PrevPlayable returns the closest non-skipped track number before n,
// or 0 if none exists.
func (d Disc) PrevPlayable(n int) int {
	for i := n - 1; i >= 1; i-- {
		if !d.Tracks[i-1].Skip {
			return i
		}
	}
	return 0
}

// FirstPlayable returns the first non-skipped track number, or 0 if
// the disc has no playable tracks.
func (d Disc) FirstPlayable() int {
	return d.NextPlayable(0)
}

// LastPlayable returns the last non-skipped track number, or 0.
func (d Disc) LastPlayable() int {
	return d.PrevPlayable(len(d.Tracks) + 1)
}
