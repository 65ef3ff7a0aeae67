package codplayer

// PacketsPerSecond is the default packet emission rate for disc
// sources (5/s, per the contract).
const PacketsPerSecond = 5

// PacketFrameSize returns the target frame length of a packet at the
// given format's rate and packet rate.
func PacketFrameSize(format Format, packetsPerSecond int) int {
	return format.Rate / packetsPerSecond
}

// Packetiser is a pure iterator over a Disc's edit list. Given a
// starting track number (in play order), it produces a finite
// sequence of descriptor AudioPackets — Data is always nil — that,
// concatenated, reconstruct the edited playback of the disc from that
// track onward. It never touches the data file.
type Packetiser struct {
	disc             *Disc
	format           Format
	packetFrameSize  int
	playOrderCounter int

	track      int // current 1-based track number, 0 once exhausted
	absPos     int // position within the current track, in frames
	done       bool
}

// NewPacketiser starts iteration at the first packet of startTrack
// (1-based). If startTrack is skipped or 0, iteration begins at the
// next playable track.
func NewPacketiser(disc *Disc, startTrack int, format Format, packetsPerSecond int) *Packetiser {
	p := &Packetiser{
		disc:            disc,
		format:          format,
		packetFrameSize: PacketFrameSize(format, packetsPerSecond),
	}
	p.track = startTrack
	if p.track < 1 {
		p.track = 1
	}
	if p.track > len(disc.Tracks) || disc.Tracks[p.track-1].Skip {
		p.track = disc.NextPlayable(p.track - 1)
	}
	if p.track == 0 {
		p.done = true
		return p
	}
	// Start at the very beginning of the track, pregap included: the
	// pregap is ordinary audio (or synthesised silence) the packetiser
	// must still emit in order, per scenario S6.
	p.absPos = 0
	return p
}

// Next returns the next packet descriptor, or (nil, false) once the
// disc's play order from the starting point is exhausted.
func (p *Packetiser) Next() (*AudioPacket, bool) {
	if p.done {
		return nil, false
	}

	track := p.disc.Tracks[p.track-1]

	length := p.packetFrameSize
	if p.absPos < track.PregapOffset {
		// Cap to stay within the pregap; never straddle the
		// pregap/index-1 boundary.
		if p.absPos+length > track.PregapOffset {
			length = track.PregapOffset - p.absPos
		}
	} else {
		if p.absPos+length > track.Length {
			length = track.Length - p.absPos
		}
	}

	// Never straddle pregap_silence, or any index mark.
	for _, boundary := range append([]int{track.PregapSilence}, track.Index...) {
		if p.absPos < boundary && p.absPos+length > boundary {
			length = boundary - p.absPos
		}
	}

	if length == 0 {
		if !p.advanceTrack() {
			p.done = true
			return nil, false
		}
		return p.Next()
	}

	pkt := &AudioPacket{
		Disc:                   p.disc,
		Track:                  track,
		TrackNumberInPlayOrder: p.playOrderCounter,
		AbsPos:                 p.absPos,
		RelPos:                 p.absPos - track.PregapOffset,
		Length:                 length,
		Format:                 p.format,
	}
	pkt.Index = packetIndex(track, p.absPos)
	pkt.FilePos = packetFilePos(track, p.absPos)

	nextAbs := p.absPos + length
	if nextAbs == track.Length && track.PauseAfter && p.disc.NextPlayable(p.track) != 0 {
		pkt.Flags |= PauseAfter
	}

	p.absPos = nextAbs
	if p.absPos >= track.Length {
		if !p.advanceTrack() {
			p.done = true
		}
	}

	return pkt, true
}

// ResumeTrack reports the 1-based track number the packetiser would
// start from if constructed fresh right now; used to remember where
// to resume after a PAUSE_AFTER stop.
func (p *Packetiser) ResumeTrack() int {
	return p.track
}

func (p *Packetiser) advanceTrack() bool {
	next := p.disc.NextPlayable(p.track)
	if next == 0 {
		p.track = 0
		return false
	}
	p.track = next
	p.playOrderCounter++
	p.absPos = 0
	return true
}

// packetIndex computes the index per the invariant: 1 + count of
// {pregap_offset} ∪ index[] values <= abs_pos; 0 iff abs_pos < pregap_offset.
func packetIndex(track Track, absPos int) int {
	if absPos < track.PregapOffset {
		return 0
	}
	count := 1 // pregap_offset itself counts
	for _, idx := range track.Index {
		if idx <= absPos {
			count++
		}
	}
	return count
}

// packetFilePos computes the file offset for a packet starting at
// absPos, or nil if that position is within the synthesised-silence
// prefix.
func packetFilePos(track Track, absPos int) *int64 {
	if absPos < track.PregapSilence {
		return nil
	}
	pos := int64(track.FileOffset+(absPos-track.PregapSilence)) * int64(RedbookFormat.BytesPerFrame())
	return &pos
}
