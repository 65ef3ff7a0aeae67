// Package codplayer implements the playback transport for a networked
// CD player: a packetiser over a disc's edit list, disc and radio
// sources, a period-quantised sink, and the transport state machine
// that ties them together.
package codplayer

import (
	"fmt"
	"strconv"
	"strings"
)

// Format describes the PCM layout of a stream of audio frames.
//
// All CD-derived audio uses the Redbook format: stereo, 16-bit signed
// samples, 44.1kHz, big-endian by convention of the on-disk library.
// Radio sources negotiate their own rate after the first decoded
// frame but keep the same channel count and sample width.
type Format struct {
	Rate           int // samples per second
	Channels       int
	BytesPerSample int
	BigEndian      bool
}

// RedbookFormat is the format of every CD-sourced data file.
var RedbookFormat = Format{
	Rate:           44100,
	Channels:       2,
	BytesPerSample: 2,
	BigEndian:      true,
}

// BytesPerFrame is the size in bytes of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BytesPerSample
}

// FramesToDuration converts a frame count to whole and fractional seconds.
func (f Format) FramesToDuration(frames int) float64 {
	if f.Rate == 0 {
		return 0
	}
	return float64(frames) / float64(f.Rate)
}

// CD geometry: the disc-addressing unit ("CD frame", often called a
// sector) is fixed by the Redbook standard regardless of sample rate.
const (
	CDFramesPerSecond     = 75
	AudioFramesPerCDFrame = 588
)

// MSFToFrames converts a cdrdao/cdparanoia-style "mm:ss:ff" timecode
// into an absolute audio frame offset. ff is in CD frames (1/75s).
func MSFToFrames(msf string) (int, error) {
	parts := strings.Split(msf, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("codplayer: invalid msf timecode %q", msf)
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("codplayer: invalid msf timecode %q: %w", msf, err)
	}
	s, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("codplayer: invalid msf timecode %q: %w", msf, err)
	}
	f, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("codplayer: invalid msf timecode %q: %w", msf, err)
	}
	if f < 0 || f >= CDFramesPerSecond {
		return 0, fmt.Errorf("codplayer: invalid msf timecode %q: frame out of range", msf)
	}
	totalCDFrames := (m*60+s)*CDFramesPerSecond + f
	return totalCDFrames * AudioFramesPerCDFrame, nil
}
