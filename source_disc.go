package codplayer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// ripRetryDelay is the back-off between attempts to open or extend a
// data file that a concurrent rip is still writing. Variable (not
// const) so tests can shrink it instead of waiting in real time.
var ripRetryDelay = time.Second

// DiscSource plays packets from a ripped (or still-ripping) disc's
// data file. It opens the file lazily on the first packet and, while
// a rip is reported in progress, tolerates the file being absent or
// short, retrying instead of failing.
type DiscSource struct {
	disc       *Disc
	dataPath   string
	startTrack int

	// IsRipping reports whether a rip of this disc is currently in
	// progress; nil means "never ripping" (a fully at-rest library
	// disc).
	IsRipping func() bool

	logger *Logger

	resumeTrack int
	err         error
	file        *os.File
}

var _ Source = (*DiscSource)(nil)

// NewDiscSource constructs a source that plays disc starting at
// startTrack (1-based; 0 or skipped starts at the first playable
// track).
func NewDiscSource(disc *Disc, dataPath string, startTrack int, isRipping func() bool, logger *Logger) *DiscSource {
	return &DiscSource{
		disc:        disc,
		dataPath:    dataPath,
		startTrack:  startTrack,
		IsRipping:   isRipping,
		logger:      logger,
		resumeTrack: startTrack,
	}
}

func (s *DiscSource) Pausable() bool { return true }

func (s *DiscSource) InitialState(prev PlayerState) PlayerState {
	return PlayerState{
		State:        StateWorking,
		DiscID:       s.disc.DiscID,
		SourceDiscID: s.disc.SourceDiscID,
		NoTracks:     len(s.disc.Tracks),
		AlbumInfo:    &s.disc.Info,
	}
}

// NextSource implements the disc `next` policy from §4.2: from STOP,
// play from the first track; from PLAY/PAUSE, advance one non-skipped
// track, stopping past the last.
func (s *DiscSource) NextSource(state PlayerState) (Source, bool) {
	var target int
	if state.State == StateStop {
		target = s.disc.FirstPlayable()
	} else {
		target = s.disc.NextPlayable(state.Track)
	}
	if target == 0 {
		return nil, false
	}
	return NewDiscSource(s.disc, s.dataPath, target, s.IsRipping, s.logger), true
}

// PrevSource implements the disc `prev` policy from §4.2: from STOP,
// play the last track; from PLAY/PAUSE, restart the current track
// unless fewer than 2 seconds in, in which case go to the previous
// non-skipped track; stop past the first.
func (s *DiscSource) PrevSource(state PlayerState) (Source, bool) {
	if state.State == StateStop {
		target := s.disc.LastPlayable()
		if target == 0 {
			return nil, false
		}
		return NewDiscSource(s.disc, s.dataPath, target, s.IsRipping, s.logger), true
	}

	if state.PositionSeconds < 2 {
		target := s.disc.PrevPlayable(state.Track)
		if target == 0 {
			return nil, false
		}
		return NewDiscSource(s.disc, s.dataPath, target, s.IsRipping, s.logger), true
	}
	return NewDiscSource(s.disc, s.dataPath, state.Track, s.IsRipping, s.logger), true
}

// Disc exposes the disc backing this source, so the transport can
// answer the `disc` RPC query without the Source interface itself
// needing to know about discs (radio sources simply don't implement
// this).
func (s *DiscSource) Disc() *Disc { return s.disc }

func (s *DiscSource) Err() error { return s.err }

func (s *DiscSource) Stopped() {}

// Stalled is a no-op for disc sources; only live streams stall.
func (s *DiscSource) Stalled() {}

// Packets drives the Packetiser, opening the data file lazily and
// retrying while a rip races ahead of playback, exactly per §4.2 and
// §8 scenario S5.
func (s *DiscSource) Packets(ctx context.Context) <-chan *AudioPacket {
	out := make(chan *AudioPacket)
	go func() {
		defer close(out)
		defer s.closeFile()

		p := NewPacketiser(s.disc, s.startTrack, RedbookFormat, PacketsPerSecond)

		for {
			pkt, ok := p.Next()
			if !ok {
				s.resumeTrack = 0
				return
			}

			if err := s.fill(ctx, pkt); err != nil {
				if err != context.Canceled {
					s.err = err
				}
				return
			}

			select {
			case out <- pkt:
			case <-ctx.Done():
				return
			}

			if pkt.HasPauseAfter() {
				s.resumeTrack = p.ResumeTrack()
				return
			}
		}
	}()
	return out
}

// fill reads pkt.Length frames into pkt.Data, opening the data file
// lazily and tolerating a racing rip.
func (s *DiscSource) fill(ctx context.Context, pkt *AudioPacket) error {
	n := pkt.Length * pkt.Format.BytesPerFrame()
	pkt.Data = make([]byte, n)

	if pkt.FilePos == nil {
		// Synthesised silence: zero-filled buffer, nothing to read.
		return nil
	}

	if err := s.ensureOpen(ctx); err != nil {
		return err
	}

	want := n
	got := 0
	pos := *pkt.FilePos
	for got < want {
		nn, err := s.file.ReadAt(pkt.Data[got:], pos+int64(got))
		got += nn
		if got >= want {
			return nil
		}
		if err != nil && err != io.EOF {
			return NewPlayerError(SourceErrorKind, fmt.Errorf("reading %s: %w", s.dataPath, err))
		}
		// Short read. If the ripper is still running, it may still
		// extend the file; wait and retry from the same position.
		if !s.ripping() {
			return NewPlayerError(SourceErrorKind, ErrEndOfFile)
		}
		if err := s.sleep(ctx, ripRetryDelay); err != nil {
			return err
		}
	}
	return nil
}

func (s *DiscSource) ensureOpen(ctx context.Context) error {
	if s.file != nil {
		return nil
	}
	for {
		f, err := os.Open(s.dataPath)
		if err == nil {
			s.file = f
			return nil
		}
		if !os.IsNotExist(err) || !s.ripping() {
			return NewPlayerError(SourceErrorKind, fmt.Errorf("opening %s: %w", s.dataPath, err))
		}
		if err := s.sleep(ctx, ripRetryDelay); err != nil {
			return err
		}
	}
}

func (s *DiscSource) ripping() bool {
	return s.IsRipping != nil && s.IsRipping()
}

func (s *DiscSource) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DiscSource) closeFile() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
}

// ResumeTrack reports the track a subsequent `play` command should
// restart from (0 meaning "first playable").
func (s *DiscSource) ResumeTrack() int {
	return s.resumeTrack
}

// SeekTrack returns a fresh source positioned to start its next
// Packets() run at track, used by Play to resume at the track
// remembered from a PAUSE_AFTER-triggered stop (§4.1: "playing again
// starts there") rather than replaying the track that was playing
// when the source was first installed.
func (s *DiscSource) SeekTrack(track int) Source {
	return NewDiscSource(s.disc, s.dataPath, track, s.IsRipping, s.logger)
}
