package codplayer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// RadioPacketsPerSecond is the emission rate for decoded radio audio,
// finer-grained than disc playback since there's no pregap/track
// bookkeeping to amortise.
const RadioPacketsPerSecond = 10

// RadioReadTimeout bounds how long a single read from the upstream
// HTTP body may block before the source yields control back to the
// transport rather than stalling it.
const RadioReadTimeout = 5 * time.Second

// RadioStation is one entry in a RadioSource's station list.
type RadioStation struct {
	Name string
	URL  string
}

// RadioSource plays a live MPEG-over-HTTP stream. Unlike DiscSource
// it cannot be paused: suspending a live broadcast would simply lose
// audio, so Pausable reports false and the transport rejects pause
// requests outright (§8 invariant 10, scenario S4).
type RadioSource struct {
	stations []RadioStation
	index    int

	client      *http.Client
	readTimeout time.Duration
	logger      *Logger

	stalled atomic.Bool
	err     error
}

var _ Source = (*RadioSource)(nil)

// NewRadioSource constructs a source over the given station list,
// starting at startIndex (wrapped into range).
func NewRadioSource(stations []RadioStation, startIndex int, logger *Logger) *RadioSource {
	if len(stations) == 0 {
		return &RadioSource{logger: logger}
	}
	idx := startIndex % len(stations)
	if idx < 0 {
		idx += len(stations)
	}
	return &RadioSource{
		stations:    stations,
		index:       idx,
		client:      &http.Client{},
		readTimeout: RadioReadTimeout,
		logger:      logger,
	}
}

func (s *RadioSource) Pausable() bool { return false }

func (s *RadioSource) station() RadioStation {
	return s.stations[s.index]
}

func (s *RadioSource) InitialState(prev PlayerState) PlayerState {
	name := ""
	if len(s.stations) > 0 {
		name = s.station().Name
	}
	return PlayerState{
		State:      StateWorking,
		StreamName: fmt.Sprintf("radio:%s", name),
	}
}

// NextSource/PrevSource cycle through the configured station list
// with wraparound; the original left the wrap policy to the
// collaborator, so this is that collaborator's chosen behaviour.
func (s *RadioSource) NextSource(state PlayerState) (Source, bool) {
	if len(s.stations) == 0 {
		return nil, false
	}
	return NewRadioSource(s.stations, s.index+1, s.logger), true
}

func (s *RadioSource) PrevSource(state PlayerState) (Source, bool) {
	if len(s.stations) == 0 {
		return nil, false
	}
	return NewRadioSource(s.stations, s.index-1, s.logger), true
}

func (s *RadioSource) Err() error { return s.err }

func (s *RadioSource) Stopped() {}

// Stalled is called by an external watchdog to promote a perceived
// stall into a forced restart of the upstream connection.
func (s *RadioSource) Stalled() {
	s.stalled.Store(true)
}

// Packets connects to the configured station, decodes MPEG frames
// into PCM, and reopens the connection (after a second of injected
// silence) on any decode/network error or external stall signal.
func (s *RadioSource) Packets(ctx context.Context) <-chan *AudioPacket {
	out := make(chan *AudioPacket)
	if len(s.stations) == 0 {
		close(out)
		return out
	}

	go func() {
		defer close(out)

		// Format of the injected silence when a connection fails before
		// any frame was decoded: the last decoded format, or 44.1kHz.
		lastFormat := Format{Rate: RedbookFormat.Rate, Channels: RedbookFormat.Channels, BytesPerSample: RedbookFormat.BytesPerSample, BigEndian: isBigEndianHost()}

		for {
			if ctx.Err() != nil {
				return
			}

			format, frames, streamErr := s.playStream(ctx, out)
			if ctx.Err() != nil {
				return
			}
			if format.Rate == 0 {
				format = lastFormat
			} else {
				lastFormat = format
			}
			if streamErr == nil {
				// Clean EOF from the station (rare but possible); treat
				// like any other disconnect and reopen.
				streamErr = fmt.Errorf("codplayer: radio stream ended")
			}
			if s.logger != nil {
				s.logger.WithComponent("radio").Warn("stream error, restarting", "station", s.station().Name, "err", streamErr, "frames", frames)
			}

			silence := &AudioPacket{
				Format: format,
				Length: format.Rate,
				Data:   make([]byte, format.Rate*format.BytesPerFrame()),
			}
			select {
			case out <- silence:
			case <-ctx.Done():
				return
			}
			s.stalled.Store(false)
		}
	}()
	return out
}

// playStream runs one connection's worth of decoding, sending packets
// to out until an error, a stall signal, or ctx cancellation.
func (s *RadioSource) playStream(ctx context.Context, out chan<- *AudioPacket) (Format, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.station().URL, nil)
	if err != nil {
		return Format{}, 0, NewPlayerError(SourceErrorKind, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Format{}, 0, NewPlayerError(SourceErrorKind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Format{}, 0, NewPlayerError(SourceErrorKind, fmt.Errorf("station %s: http status %d", s.station().Name, resp.StatusCode))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		return Format{}, 0, NewPlayerError(SourceErrorKind, fmt.Errorf("%w: %s", ErrUnsupportedStream, ct))
	}

	body := newTimeoutReader(resp.Body, s.readTimeout)
	decoder, err := mp3.NewDecoder(body)
	if err != nil {
		return Format{}, 0, NewPlayerError(SourceErrorKind, fmt.Errorf("decoding mpeg stream: %w", err))
	}

	format := Format{Rate: decoder.SampleRate(), Channels: RedbookFormat.Channels, BytesPerSample: RedbookFormat.BytesPerSample, BigEndian: isBigEndianHost()}
	packetFrames := format.Rate / RadioPacketsPerSecond
	buf := make([]byte, packetFrames*format.BytesPerFrame())

	frames := 0
	for {
		if s.stalled.Load() {
			return format, frames, NewPlayerError(StreamStalledKind, fmt.Errorf("radio stream stalled"))
		}

		n, err := io.ReadFull(decoder, buf)
		if n > 0 {
			pkt := &AudioPacket{
				Format: format,
				Length: n / format.BytesPerFrame(),
				Data:   append([]byte(nil), buf[:n]...),
			}
			frames += pkt.Length
			select {
			case out <- pkt:
			case <-ctx.Done():
				return format, frames, nil
			}
		}
		if err == errReadTimeout {
			// Yield control to the transport; the connection is still
			// alive, just momentarily slow.
			continue
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return format, frames, nil
			}
			return format, frames, NewPlayerError(SourceErrorKind, err)
		}
	}
}
