package codplayer

// PauseAfter is the only flag bit currently defined on an AudioPacket.
const PauseAfter = 0x01

// AudioPacket is a fixed-rate chunk of a disc's (or stream's) PCM
// audio, along with enough provenance to report playback position.
//
// A packet is created by the Packetiser with Data == nil: a pure
// descriptor of what bytes to play and where they come from. The
// Source fills in Data before the packet is pushed onto the
// transport's queue, so the queue only ever carries ready packets.
type AudioPacket struct {
	Disc  *Disc
	Track Track

	TrackNumberInPlayOrder int // 0-based position among non-skipped tracks played this source

	Index int // 0 = pregap, 1+ = main/sub index

	AbsPos int // offset from track start, in frames
	RelPos int // AbsPos - Track.PregapOffset; negative in pregap

	Length int // frames in this packet

	FilePos *int64 // byte offset into the data file; nil => synthesise silence

	Flags byte

	Data []byte // Length * Format.BytesPerFrame() bytes once filled in

	Format Format

	Context any // opaque token stamped by the source thread; see token.go
}

// HasPauseAfter reports whether this packet is the last one
// delivered before the transport must pause.
func (p *AudioPacket) HasPauseAfter() bool {
	return p.Flags&PauseAfter != 0
}

// endOfStream is pushed onto the packet queue by the source thread
// when a source's packet sequence is exhausted normally. It carries
// no audio; the sink thread uses it purely as a drain trigger.
type endOfStream struct {
	Context any
}
