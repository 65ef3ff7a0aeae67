package codplayer

import (
	"context"
	"math"
	"sync"
	"time"
)

// Transport is the central coordinator: it owns the observable
// PlayerState/RipState, the current Source, the bounded packet queue,
// and the source-thread/sink-thread goroutines that move packets from
// source to sink. All command methods are safe for concurrent use.
type Transport struct {
	mu         sync.Mutex
	state      PlayerState
	ripState   RipState
	source     Source
	startTrack int

	tokens *tokenSource
	queue  chan any

	sink      Sink
	publisher StatePublisher
	logger    *Logger

	lastPublishedSecond int
	haveLastSecond      bool
}

// NewTransport constructs a Transport with no source installed
// (state NO_DISC) and starts its source-thread and sink-thread.
func NewTransport(sink Sink, publisher StatePublisher, queueCapacity int, logger *Logger) *Transport {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if queueCapacity <= 0 {
		queueCapacity = 20 * PacketsPerSecond
	}
	t := &Transport{
		state:     PlayerState{State: StateNoDisc},
		ripState:  RipState{State: RipInactive},
		tokens:    newTokenSource(),
		queue:     make(chan any, queueCapacity),
		sink:      sink,
		publisher: publisher,
		logger:    logger,
	}
	go t.sourceLoop()
	go t.sinkLoop()
	return t
}

// State returns the current published state.
func (t *Transport) State() PlayerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// RipState returns the current published rip state.
func (t *Transport) RipState() RipState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ripState
}

// CurrentDisc returns the Disc backing the installed source, or nil if
// there is none installed or the source isn't disc-backed (e.g. a
// RadioSource). Used to answer the `disc` RPC query.
func (t *Transport) CurrentDisc() *Disc {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.source.(interface{ Disc() *Disc }); ok {
		return d.Disc()
	}
	return nil
}

var _ QueryHandler = (*Transport)(nil)

// --- Commands (§4.4 command table) ---

// NewSource bumps the context, stops the sink, installs src, and
// publishes WORKING.
func (t *Transport) NewSource(src Source, startTrack int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.installSourceLocked(src, startTrack)
}

func (t *Transport) installSourceLocked(src Source, startTrack int) {
	t.tokens.Bump()
	t.sink.Stop()
	t.source = src
	t.startTrack = startTrack
	t.haveLastSecond = false
	if src == nil {
		t.setStateLocked(PlayerState{State: StateNoDisc})
		return
	}
	t.setStateLocked(src.InitialState(t.state).With(func(s *PlayerState) { s.State = StateWorking }))
}

// Eject bumps the context, stops the sink, drops the source, and
// publishes NO_DISC. A no-op from NO_DISC.
func (t *Transport) Eject() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.State == StateNoDisc {
		return
	}
	if t.source != nil {
		t.source.Stopped()
	}
	t.installSourceLocked(nil, 0)
}

// Stop bumps the context, stops the sink, and publishes STOP. A
// no-op from STOP or NO_DISC.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.State == StateStop || t.state.State == StateNoDisc {
		return
	}
	if t.source != nil {
		t.source.Stopped()
	}
	t.tokens.Bump()
	t.sink.Stop()
	t.haveLastSecond = false
	t.setStateLocked(t.state.With(func(s *PlayerState) { s.State = StateStop }))
}

// Play handles both `play` from STOP (restart) and `play` from PAUSE
// (resume), per the command table.
func (t *Transport) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state.State {
	case StateStop:
		if t.source == nil {
			return
		}
		resumeTrack := t.startTrack
		if r, ok := t.source.(interface{ ResumeTrack() int }); ok {
			resumeTrack = r.ResumeTrack()
		}
		if seeker, ok := t.source.(trackSeeker); ok {
			t.source = seeker.SeekTrack(resumeTrack)
		}
		t.tokens.Bump()
		t.sink.Stop()
		t.startTrack = resumeTrack
		t.haveLastSecond = false
		t.setStateLocked(t.state.With(func(s *PlayerState) { s.State = StateWorking }))
	case StatePause:
		t.sink.Resume()
		t.setStateLocked(t.state.With(func(s *PlayerState) { s.State = StatePlay }))
	}
}

// Pause asks the sink to pause; if the sink accepts and the source is
// pausable, publishes PAUSE. On a non-pausable source the state tag
// is left unchanged (§8 invariant 10, scenario S4): the sink's
// pause() is not even called.
func (t *Transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.State != StatePlay {
		return
	}
	if t.source == nil || !t.source.Pausable() {
		return
	}
	if t.sink.Pause() {
		t.setStateLocked(t.state.With(func(s *PlayerState) { s.State = StatePause }))
	}
}

// PlayPause toggles between PLAY and PAUSE.
func (t *Transport) PlayPause() {
	t.mu.Lock()
	state := t.state.State
	t.mu.Unlock()
	switch state {
	case StatePlay:
		t.Pause()
	case StatePause:
		t.Play()
	}
}

// trackSeeker is implemented by sources that can be repositioned to a
// specific track before their next Packets() run, so Play can resume
// at a remembered track (e.g. after a PAUSE_AFTER-triggered stop)
// instead of replaying whatever track the source was last playing.
type trackSeeker interface {
	SeekTrack(track int) Source
}

// Next delegates to source.NextSource(state); a nil result stops
// playback, otherwise installs the returned source.
func (t *Transport) Next() {
	t.doTransition(func(src Source, state PlayerState) (Source, bool) {
		return src.NextSource(state)
	})
}

// Prev delegates to source.PrevSource(state), same rules as Next.
func (t *Transport) Prev() {
	t.doTransition(func(src Source, state PlayerState) (Source, bool) {
		return src.PrevSource(state)
	})
}

func (t *Transport) doTransition(pick func(Source, PlayerState) (Source, bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.source == nil {
		return
	}
	switch t.state.State {
	case StatePlay, StatePause, StateStop:
	default:
		return
	}
	next, ok := pick(t.source, t.state)
	if !ok {
		t.tokens.Bump()
		t.sink.Stop()
		t.haveLastSecond = false
		t.setStateLocked(t.state.With(func(s *PlayerState) { s.State = StateStop }))
		return
	}
	t.installSourceLocked(next, 0)
}

// SetRippingProgress updates RipState.Progress. A nil progress while
// WORKING means the rip failed before any packets arrived, so the
// transport falls back to NO_DISC.
func (t *Transport) SetRippingProgress(progress *int, err string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ripState = t.ripState.With(func(r *RipState) {
		r.Progress = progress
		r.Error = err
		if progress == nil && err == "" {
			r.State = RipInactive
		} else {
			r.State = RipAudio
		}
	})
	_ = t.publisher.PublishRipState(t.ripState)

	if progress == nil && t.state.State == StateWorking {
		if t.source != nil {
			t.source.Stopped()
		}
		t.installSourceLocked(nil, 0)
	}
}

// --- internal state publication ---

// setStateLocked installs a new state and publishes it. Must be
// called with t.mu held; all state writes funnel through here so
// broadcasts are totally ordered (§8 invariant 6).
func (t *Transport) setStateLocked(s PlayerState) {
	t.state = s
	_ = t.publisher.PublishState(t.state)
}

// --- source-thread ---

func (t *Transport) snapshotSource() (*token, Source) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokens.Current(), t.source
}

func (t *Transport) sourceLoop() {
	for {
		tok, src := t.snapshotSource()
		if src == nil {
			<-tok.Done()
			continue
		}
		t.runSource(tok, src)
		<-tok.Done()
	}
}

// runSource pulls packets from src until it ends or tok is
// superseded, stamping each with tok and pushing it to the bounded
// queue (back-pressure: the send blocks when the queue is full). src
// is already positioned at whatever track/station it should start
// from (see trackSeeker): runSource itself has no notion of tracks.
func (t *Transport) runSource(tok *token, src Source) {
	ctx := contextFromToken(tok)
	ch := src.Packets(ctx)
	for pkt := range ch {
		pkt.Context = tok
		select {
		case t.queue <- pkt:
		case <-tok.Done():
			return
		}
	}
	if tok.Cancelled() {
		return
	}
	if err := src.Err(); err != nil {
		t.mu.Lock()
		t.setStateLocked(t.state.With(func(s *PlayerState) { s.Error = err.Error() }))
		t.mu.Unlock()
	}
	select {
	case t.queue <- &endOfStream{Context: tok}:
	case <-tok.Done():
	}
}

func contextFromToken(tok *token) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-tok.Done()
		cancel()
	}()
	return ctx
}

// --- sink-thread ---

func (t *Transport) sinkLoop() {
	for {
		item := <-t.queue
		switch v := item.(type) {
		case *AudioPacket:
			tok, _ := v.Context.(*token)
			if tok == nil || tok.Cancelled() {
				continue
			}
			t.startPlaying(tok, v)
			t.addingLoop(tok)
		case *endOfStream:
			tok, _ := v.Context.(*token)
			if tok == nil || tok.Cancelled() {
				continue
			}
			t.reportStop(tok)
		}
	}
}

func (t *Transport) startPlaying(tok *token, pkt *AudioPacket) {
	if err := t.sink.Start(pkt.Format); err != nil {
		t.reportDeviceError(err)
	}
	t.mu.Lock()
	if t.tokens.Current() == tok {
		t.setStateLocked(t.stateFromPacket(StatePlay, pkt))
	}
	t.mu.Unlock()
	t.feed(tok, pkt, 0)
}

// addingLoop implements the ADDING state: keep feeding the current
// packet and subsequent fresh packets to the sink until a sentinel
// with the current context arrives (-> draining) or tok is
// superseded.
func (t *Transport) addingLoop(tok *token) {
	for {
		item, ok := t.nextFresh(tok)
		if !ok {
			return
		}
		switch v := item.(type) {
		case *AudioPacket:
			t.feed(tok, v, 0)
		case *endOfStream:
			t.drainLoop(tok)
			return
		}
	}
}

// feed drives sink.AddPacket to absorb all of pkt's bytes, updating
// published state as the sink reports progress.
func (t *Transport) feed(tok *token, pkt *AudioPacket, offset int) {
	for offset < len(pkt.Data) {
		if tok.Cancelled() {
			return
		}
		consumed, playing, err := t.sink.AddPacket(pkt, offset)
		if err != nil {
			t.reportDeviceError(err)
		}
		if playing != nil {
			t.updateFromPlaying(tok, playing)
		}
		offset += consumed
		if consumed == 0 && err == nil {
			// Device momentarily blocked; give the caller a chance to
			// observe cancellation rather than spinning.
			select {
			case <-tok.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
}

// drainLoop implements the DRAINING state: call sink.Drain()
// repeatedly, reporting the packet still draining, until both the
// partial period and device buffer are empty.
func (t *Transport) drainLoop(tok *token) {
	for {
		if tok.Cancelled() {
			return
		}
		playing, done, err := t.sink.Drain()
		if err != nil {
			t.reportDeviceError(err)
		}
		if playing != nil {
			t.updateFromPlaying(tok, playing)
		}
		if done {
			t.reportStop(tok)
			return
		}
	}
}

// nextFresh pulls from the queue, discarding any item whose token has
// already been superseded, until it finds one still matching tok (ok
// == true) or tok itself is superseded (ok == false).
func (t *Transport) nextFresh(tok *token) (any, bool) {
	for {
		select {
		case item := <-t.queue:
			var itemTok *token
			switch v := item.(type) {
			case *AudioPacket:
				itemTok, _ = v.Context.(*token)
			case *endOfStream:
				itemTok, _ = v.Context.(*token)
			}
			if itemTok != tok {
				continue
			}
			return item, true
		case <-tok.Done():
			return nil, false
		}
	}
}

func (t *Transport) reportStop(tok *token) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tokens.Current() != tok {
		return
	}
	t.setStateLocked(t.state.With(func(s *PlayerState) { s.State = StateStop }))
}

func (t *Transport) reportDeviceError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setStateLocked(t.state.With(func(s *PlayerState) { s.Error = err.Error() }))
}

// updateFromPlaying implements sink_update_state: publish a new state
// only when track, index, or the whole-second-floor of position
// changes (including decreases, to support prev/restart).
func (t *Transport) updateFromPlaying(tok *token, pkt *AudioPacket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tokens.Current() != tok {
		return
	}
	second := int(math.Floor(pkt.Format.FramesToDuration(pkt.RelPos)))
	changed := t.state.Track != pkt.Track.Number ||
		t.state.Index != pkt.Index ||
		!t.haveLastSecond || t.lastPublishedSecond != second
	if !changed {
		return
	}
	t.lastPublishedSecond = second
	t.haveLastSecond = true
	t.setStateLocked(t.stateFromPacket(StatePlay, pkt))
}

func (t *Transport) stateFromPacket(tag PlayerTag, pkt *AudioPacket) PlayerState {
	s := t.state
	s.State = tag
	if pkt.Disc != nil {
		s.DiscID = pkt.Disc.DiscID
		s.SourceDiscID = pkt.Disc.SourceDiscID
		s.NoTracks = len(pkt.Disc.Tracks)
	}
	s.Track = pkt.Track.Number
	s.Index = pkt.Index
	s.PositionSeconds = pkt.Format.FramesToDuration(pkt.RelPos)
	s.LengthSeconds = pkt.Format.FramesToDuration(pkt.Track.Length - pkt.Track.PregapOffset)
	s.Error = ""
	return s
}
