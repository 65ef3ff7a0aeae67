package codplayer

import (
	"context"
	"sync"
)

// sliceSource is a test Source that emits a fixed list of packets and
// then ends, used to drive the transport's sink-thread state machine
// without needing a real disc file or radio stream.
type sliceSource struct {
	disc     *Disc
	packets  []*AudioPacket
	pausable bool

	next func(PlayerState) (Source, bool)
	prev func(PlayerState) (Source, bool)

	stoppedCalled bool
}

var _ Source = (*sliceSource)(nil)

func newSliceSource(disc *Disc, packets []*AudioPacket, pausable bool) *sliceSource {
	return &sliceSource{disc: disc, packets: packets, pausable: pausable}
}

func (s *sliceSource) Pausable() bool { return s.pausable }

func (s *sliceSource) InitialState(prev PlayerState) PlayerState {
	return PlayerState{State: StateWorking, DiscID: s.disc.DiscID, NoTracks: len(s.disc.Tracks)}
}

func (s *sliceSource) NextSource(state PlayerState) (Source, bool) {
	if s.next != nil {
		return s.next(state)
	}
	return nil, false
}

func (s *sliceSource) PrevSource(state PlayerState) (Source, bool) {
	if s.prev != nil {
		return s.prev(state)
	}
	return nil, false
}

func (s *sliceSource) Err() error { return nil }

func (s *sliceSource) Stopped() { s.stoppedCalled = true }

func (s *sliceSource) Stalled() {}

func (s *sliceSource) Packets(ctx context.Context) <-chan *AudioPacket {
	out := make(chan *AudioPacket)
	go func() {
		defer close(out)
		for _, pkt := range s.packets {
			select {
			case out <- pkt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// pauseAfterSource is a minimal two-track test Source exercising the
// transport's trackSeeker/ResumeTrack wiring: each instance represents
// being positioned at one track, emits that track's single packet,
// then ends (standing in for a PAUSE_AFTER-triggered stop after track
// 1). ResumeTrack reports where a subsequent `play` should resume, and
// SeekTrack reconstructs the source positioned there, mirroring
// DiscSource's real contract without needing a data file.
type pauseAfterSource struct {
	disc  *Disc
	track int
}

var _ Source = (*pauseAfterSource)(nil)

func newPauseAfterSource(disc *Disc, track int) *pauseAfterSource {
	return &pauseAfterSource{disc: disc, track: track}
}

func (s *pauseAfterSource) Pausable() bool { return true }

func (s *pauseAfterSource) InitialState(prev PlayerState) PlayerState {
	return PlayerState{State: StateWorking, DiscID: s.disc.DiscID, NoTracks: len(s.disc.Tracks)}
}

func (s *pauseAfterSource) NextSource(state PlayerState) (Source, bool) { return nil, false }
func (s *pauseAfterSource) PrevSource(state PlayerState) (Source, bool) { return nil, false }
func (s *pauseAfterSource) Err() error                                  { return nil }
func (s *pauseAfterSource) Stopped()                                    {}
func (s *pauseAfterSource) Stalled()                                    {}

// ResumeTrack reports track 1's PAUSE_AFTER hand-off to track 2; track
// 2 has nothing further to resume into.
func (s *pauseAfterSource) ResumeTrack() int {
	if s.track == 1 {
		return 2
	}
	return 0
}

func (s *pauseAfterSource) SeekTrack(track int) Source {
	return newPauseAfterSource(s.disc, track)
}

func (s *pauseAfterSource) Packets(ctx context.Context) <-chan *AudioPacket {
	out := make(chan *AudioPacket)
	track := s.disc.Tracks[s.track-1]
	pkt := makePacket(s.disc, track, 0, track.Length)
	if s.track == 1 {
		pkt.Flags |= PauseAfter
	}
	go func() {
		defer close(out)
		select {
		case out <- pkt:
		case <-ctx.Done():
		}
	}()
	return out
}

// recordingPublisher captures every published PlayerState in order,
// for asserting the ordering guarantees in §8.
type recordingPublisher struct {
	mu     sync.Mutex
	states []PlayerState
}

var _ StatePublisher = (*recordingPublisher)(nil)

func (r *recordingPublisher) PublishState(s PlayerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	return nil
}

func (r *recordingPublisher) PublishRipState(RipState) error { return nil }
func (r *recordingPublisher) PublishDisc(*Disc) error         { return nil }

func (r *recordingPublisher) snapshot() []PlayerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PlayerState, len(r.states))
	copy(out, r.states)
	return out
}

func (r *recordingPublisher) last() (PlayerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return PlayerState{}, false
	}
	return r.states[len(r.states)-1], true
}

// makePacket builds a ready (Data already filled) packet for a single
// track of a single-track disc, at the given absPos, for tests that
// don't need DiscSource/Packetiser's file-reading machinery.
func makePacket(disc *Disc, track Track, absPos, length int) *AudioPacket {
	return &AudioPacket{
		Disc:   disc,
		Track:  track,
		AbsPos: absPos,
		RelPos: absPos - track.PregapOffset,
		Length: length,
		Index:  1,
		Format: RedbookFormat,
		Data:   make([]byte, length*RedbookFormat.BytesPerFrame()),
	}
}
