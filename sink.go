package codplayer

import "io"

// Sink accepts packets and plays them to a device. All operations are
// safe to call from the sink-thread only; the transport never calls
// them concurrently with one another (see §4.3).
type Sink interface {
	// Start negotiates the device format, per §4.3's format
	// negotiation rules (byte-swap on endianness mismatch, exact
	// match required on rate/channels).
	Start(format Format) error

	// AddPacket feeds pkt.Data[offset:] into the sink's period
	// buffer, writing full periods to the device as they fill.
	// consumed reports exactly how many bytes were absorbed (0 is
	// legal when the device is blocked); playing, if non-nil, is the
	// packet whose bytes are now at the head of the device buffer.
	AddPacket(pkt *AudioPacket, offset int) (consumed int, playing *AudioPacket, err error)

	// Drain is called repeatedly after end-of-stream. done is true
	// only once both the partial period and the device buffer are
	// empty; until then playing reports whichever packet is still
	// draining so the transport can keep updating position.
	Drain() (playing *AudioPacket, done bool, err error)

	// Pause returns true iff the device was actually paused.
	// Pausing while the device is absent is accepted and remembered;
	// on reopen the device is immediately re-paused.
	Pause() bool

	// Resume un-pauses the device (or clears the remembered pause).
	Resume()

	// Stop closes the device and discards any buffered audio.
	Stop()
}

// FileSink is a Sink that writes period-quantised PCM to an
// io.Writer instead of a device, used for deterministic tests of the
// transport's sink-thread state machine without real hardware.
type FileSink struct {
	w          io.Writer
	periodSize int
	format     Format

	partial []byte
	playing *AudioPacket
	paused  bool
	err     error
}

var _ Sink = (*FileSink)(nil)

// NewFileSink returns a FileSink writing periodSize-byte periods to w.
func NewFileSink(w io.Writer, periodSize int) *FileSink {
	return &FileSink{w: w, periodSize: periodSize}
}

func (s *FileSink) Start(format Format) error {
	s.format = format
	s.partial = s.partial[:0]
	s.err = nil
	return nil
}

func (s *FileSink) AddPacket(pkt *AudioPacket, offset int) (int, *AudioPacket, error) {
	if s.err != nil {
		err := s.err
		s.err = nil
		return 0, nil, err
	}
	if s.paused {
		return 0, s.playing, nil
	}

	data := pkt.Data[offset:]
	consumed := 0
	for len(data) > 0 {
		room := s.periodSize - len(s.partial)
		n := room
		if n > len(data) {
			n = len(data)
		}
		s.partial = append(s.partial, data[:n]...)
		data = data[n:]
		consumed += n

		if len(s.partial) == s.periodSize {
			if err := s.writePeriod(s.partial); err != nil {
				return consumed, nil, err
			}
			s.partial = s.partial[:0]
		}
	}
	s.playing = pkt
	return consumed, s.playing, nil
}

func (s *FileSink) Drain() (*AudioPacket, bool, error) {
	if len(s.partial) == 0 {
		playing := s.playing
		s.playing = nil
		return playing, true, nil
	}
	padded := make([]byte, s.periodSize)
	copy(padded, s.partial)
	s.partial = s.partial[:0]
	if err := s.writePeriod(padded); err != nil {
		return s.playing, false, err
	}
	playing := s.playing
	s.playing = nil
	return playing, true, nil
}

func (s *FileSink) Pause() bool {
	s.paused = true
	return true
}

func (s *FileSink) Resume() {
	s.paused = false
}

func (s *FileSink) Stop() {
	s.partial = s.partial[:0]
	s.playing = nil
	s.paused = false
}

func (s *FileSink) writePeriod(period []byte) error {
	_, err := s.w.Write(period)
	if err != nil {
		s.err = NewPlayerError(DeviceErrorKind, err)
	}
	return err
}
