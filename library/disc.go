package library

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/codplayer/codplayer-go"
)

// discRecord is the on-disk JSON shape of a disc's .cod file. Its
// JSON field names are snake_case, independent of the Go struct's
// field names.
type discRecord struct {
	DiscID       string        `json:"disc_id"`
	SourceDiscID string        `json:"source_disc_id"`
	DataFile     string        `json:"data_file"`
	RippedAudio  bool          `json:"ripped_audio"`
	RippedTOC    bool          `json:"ripped_toc"`
	Title        string        `json:"title"`
	Artist       string        `json:"artist"`
	Tracks       []trackRecord `json:"tracks"`
}

type trackRecord struct {
	Number        int    `json:"number"`
	FileOffset    int    `json:"file_offset"`
	FileLength    int    `json:"file_length"`
	Length        int    `json:"length"`
	PregapOffset  int    `json:"pregap_offset"`
	PregapSilence int    `json:"pregap_silence"`
	Index         []int  `json:"index"`
	PauseAfter    bool   `json:"pause_after"`
	Skip          bool   `json:"skip"`
	Title         string `json:"title"`
	Artist        string `json:"artist"`
}

// LoadDisc reads and validates a disc record from its .cod file under
// root, given the disc's external id.
func LoadDisc(root, externalID string) (*codplayer.Disc, error) {
	internal, err := InternalID(externalID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(RecordFile(root, internal))
	if err != nil {
		return nil, fmt.Errorf("library: loading disc %s: %w", externalID, err)
	}
	var rec discRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("library: parsing disc record %s: %w", externalID, err)
	}
	disc := recordToDisc(rec)
	if err := disc.Validate(); err != nil {
		return nil, err
	}
	return &disc, nil
}

// SaveDisc atomically writes a disc record (tempfile + rename, per
// the single-writer-invariant design note) to its .cod file.
func SaveDisc(root string, disc *codplayer.Disc) error {
	internal, err := InternalID(disc.DiscID)
	if err != nil {
		return err
	}
	if err := disc.Validate(); err != nil {
		return err
	}
	rec := discToRecord(disc)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("library: encoding disc record %s: %w", disc.DiscID, err)
	}
	if err := os.MkdirAll(DiscDir(root, internal), 0o755); err != nil {
		return fmt.Errorf("library: creating disc dir for %s: %w", disc.DiscID, err)
	}
	return AtomicWriteFile(RecordFile(root, internal), data, 0o644)
}

func recordToDisc(rec discRecord) codplayer.Disc {
	tracks := make([]codplayer.Track, len(rec.Tracks))
	for i, tr := range rec.Tracks {
		tracks[i] = codplayer.Track{
			Number:        tr.Number,
			FileOffset:    tr.FileOffset,
			FileLength:    tr.FileLength,
			Length:        tr.Length,
			PregapOffset:  tr.PregapOffset,
			PregapSilence: tr.PregapSilence,
			Index:         tr.Index,
			PauseAfter:    tr.PauseAfter,
			Skip:          tr.Skip,
			Info:          codplayer.SongInfo{Title: tr.Title, Artist: tr.Artist},
		}
	}
	return codplayer.Disc{
		DiscID:       rec.DiscID,
		SourceDiscID: rec.SourceDiscID,
		DataFile:     rec.DataFile,
		RippedAudio:  rec.RippedAudio,
		RippedTOC:    rec.RippedTOC,
		Tracks:       tracks,
		Info:         codplayer.AlbumInfo{Title: rec.Title, Artist: rec.Artist},
	}
}

func discToRecord(disc *codplayer.Disc) discRecord {
	tracks := make([]trackRecord, len(disc.Tracks))
	for i, t := range disc.Tracks {
		tracks[i] = trackRecord{
			Number:        t.Number,
			FileOffset:    t.FileOffset,
			FileLength:    t.FileLength,
			Length:        t.Length,
			PregapOffset:  t.PregapOffset,
			PregapSilence: t.PregapSilence,
			Index:         t.Index,
			PauseAfter:    t.PauseAfter,
			Skip:          t.Skip,
			Title:         t.Info.Title,
			Artist:        t.Info.Artist,
		}
	}
	return discRecord{
		DiscID:       disc.DiscID,
		SourceDiscID: disc.SourceDiscID,
		DataFile:     disc.DataFile,
		RippedAudio:  disc.RippedAudio,
		RippedTOC:    disc.RippedTOC,
		Title:        disc.Info.Title,
		Artist:       disc.Info.Artist,
		Tracks:       tracks,
	}
}
