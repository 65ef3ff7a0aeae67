package codplayer

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioFramesPerBuffer is the sink's period size in frames. It
// plays the role py_alsa_sink.py's PERIOD_SIZE plays for ALSA: the
// unit the device is actually written in.
const PortAudioFramesPerBuffer = 4096

// portaudioInit guards the one process-wide portaudio.Initialize call
// every *PortAudioSink shares.
var portaudioInit sync.Once
var portaudioInitErr error

func initPortAudio() error {
	portaudioInit.Do(func() {
		portaudioInitErr = portaudio.Initialize()
	})
	return portaudioInitErr
}

// PortAudioSink is a period-quantised Sink backed by a real output
// device via portaudio, translated from py_alsa_sink.py's ALSA
// binding: accumulate bytes into a fixed-size period, write only full
// periods (draining zero-pads the trailing one), reopen lazily with a
// 3-second back-off after a write failure, and remember a pause
// across a reopen.
type PortAudioSink struct {
	deviceName string

	format          Format
	framesPerBuffer int
	periodBytes     int
	swapBytes       bool

	stream  *portaudio.Stream
	outBuf  []int16
	partial []byte
	playing *AudioPacket

	paused      bool
	err         error
	lastErrorAt time.Time
}

var _ Sink = (*PortAudioSink)(nil)

// NewPortAudioSink returns a sink writing to deviceName, or the
// system default output device if deviceName is empty.
func NewPortAudioSink(deviceName string) *PortAudioSink {
	return &PortAudioSink{deviceName: deviceName, framesPerBuffer: PortAudioFramesPerBuffer}
}

func (s *PortAudioSink) Start(format Format) error {
	if err := initPortAudio(); err != nil {
		return NewPlayerError(DeviceErrorKind, err)
	}
	s.format = format
	s.periodBytes = s.framesPerBuffer * format.BytesPerFrame()
	// portaudio always wants host-endian int16 samples; CD data is
	// big-endian by convention, so swap whenever the host isn't.
	s.swapBytes = format.BigEndian != isBigEndianHost()
	s.partial = make([]byte, 0, s.periodBytes)
	s.outBuf = make([]int16, s.framesPerBuffer*format.Channels)
	return s.open()
}

func (s *PortAudioSink) open() error {
	dev, err := s.outputDevice()
	if err != nil {
		return NewPlayerError(DeviceErrorKind, err)
	}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: s.format.Channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(s.format.Rate),
		FramesPerBuffer: s.framesPerBuffer,
	}
	stream, err := portaudio.OpenStream(params, &s.outBuf)
	if err != nil {
		return NewPlayerError(DeviceErrorKind, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return NewPlayerError(DeviceErrorKind, err)
	}
	s.stream = stream
	s.err = nil
	if s.paused {
		// re-pause immediately: the caller's Pause() call happened
		// while the device was absent.
		s.stream.Stop()
	}
	return nil
}

func (s *PortAudioSink) outputDevice() (*portaudio.DeviceInfo, error) {
	if s.deviceName == "" {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name == s.deviceName && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, NewPlayerError(DeviceErrorKind, errDeviceNotFound(s.deviceName))
}

func (s *PortAudioSink) AddPacket(pkt *AudioPacket, offset int) (int, *AudioPacket, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, nil, err
	}
	if s.paused {
		return 0, s.playing, nil
	}

	data := pkt.Data[offset:]
	consumed := 0
	for len(data) > 0 {
		room := s.periodBytes - len(s.partial)
		n := room
		if n > len(data) {
			n = len(data)
		}
		s.partial = append(s.partial, data[:n]...)
		data = data[n:]
		consumed += n

		if len(s.partial) == s.periodBytes {
			if err := s.writePeriod(s.partial); err != nil {
				return consumed, nil, err
			}
			s.partial = s.partial[:0]
		}
	}
	s.playing = pkt
	return consumed, s.playing, nil
}

func (s *PortAudioSink) Drain() (*AudioPacket, bool, error) {
	if len(s.partial) == 0 {
		playing := s.playing
		s.playing = nil
		return playing, true, nil
	}
	padded := make([]byte, s.periodBytes)
	copy(padded, s.partial)
	s.partial = s.partial[:0]
	if err := s.writePeriod(padded); err != nil {
		return s.playing, false, err
	}
	playing := s.playing
	s.playing = nil
	return playing, true, nil
}

func (s *PortAudioSink) writePeriod(period []byte) error {
	samples := bytesToSamples(period, s.swapBytes)
	copy(s.outBuf, samples)
	if err := s.stream.Write(); err != nil {
		s.closeOnError(err)
		return NewPlayerError(DeviceErrorKind, err)
	}
	return nil
}

func (s *PortAudioSink) closeOnError(err error) {
	s.err = err
	s.lastErrorAt = time.Now()
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
}

// ensureOpen reopens the device after an error, honouring the 3s
// back-off, and persists the error on every call until a write
// succeeds.
func (s *PortAudioSink) ensureOpen() error {
	if s.stream != nil {
		return nil
	}
	if time.Since(s.lastErrorAt) < 3*time.Second {
		return NewPlayerError(DeviceErrorKind, s.err)
	}
	if err := s.open(); err != nil {
		s.err = err
		s.lastErrorAt = time.Now()
		return err
	}
	return nil
}

func (s *PortAudioSink) Pause() bool {
	s.paused = true
	if s.stream != nil {
		s.stream.Stop()
	}
	return true
}

func (s *PortAudioSink) Resume() {
	s.paused = false
	if s.stream != nil {
		s.stream.Start()
	}
}

func (s *PortAudioSink) Stop() {
	// A paused device must be unpaused before it can drain/close.
	if s.paused && s.stream != nil {
		s.stream.Start()
	}
	s.paused = false
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	s.partial = s.partial[:0]
	s.playing = nil
}

// bytesToSamples decodes a period of raw PCM bytes into host-order
// int16 samples, byte-swapping first if the source format's
// endianness doesn't match the host's.
func bytesToSamples(period []byte, swap bool) []int16 {
	out := make([]int16, len(period)/2)
	for i := range out {
		lo, hi := period[i*2], period[i*2+1]
		if swap {
			lo, hi = hi, lo
		}
		out[i] = int16(binary.NativeEndian.Uint16([]byte{lo, hi}))
	}
	return out
}

type errDeviceNotFound string

func (e errDeviceNotFound) Error() string {
	return "codplayer: output device not found: " + string(e)
}
