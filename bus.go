package codplayer

// Command is a parsed instruction arriving over a CommandSource,
// covering the RPC/command-queue verbs from §6: play, pause,
// play_pause, stop, next, prev, eject, disc <id>, quit, plus the
// ripper-facing set_ripping_progress.
type Command struct {
	Verb string // "play", "pause", "play_pause", "stop", "next", "prev", "eject", "disc", "quit", "set_ripping_progress"
	Arg  string // e.g. the disc id for "disc", or a decimal progress for "set_ripping_progress"
}

// StatePublisher is the transport's only outbound dependency on a
// message bus: publishing the three broadcast topics from §6.
// transport.go never imports a bus client directly — only this
// interface — so bus_nats.go is swappable without touching
// transport.go.
type StatePublisher interface {
	PublishState(PlayerState) error
	PublishRipState(RipState) error
	PublishDisc(*Disc) error
}

// QueryHandler answers the player-RPC query verbs (`state`,
// `rip_state`, `disc`) with the transport's current values. Transport
// implements this directly; bus_nats.go calls it to reply to RPC
// queries instead of always replying a bare `[ok]`.
type QueryHandler interface {
	State() PlayerState
	RipState() RipState
	CurrentDisc() *Disc
}

// CommandSource is the daemon's inbound dependency: anything that can
// hand it a stream of parsed Commands, whether from the player RPC
// subject, the one-way command queue, or (in tests) a plain Go
// channel. cmd/codplayerd reads the stream and dispatches each
// Command to the Transport; Transport itself does not hold one.
type CommandSource interface {
	Commands() <-chan Command
}

// NopPublisher discards every publish; useful for tests and for
// running the transport with no bus configured at all.
type NopPublisher struct{}

func (NopPublisher) PublishState(PlayerState) error { return nil }
func (NopPublisher) PublishRipState(RipState) error { return nil }
func (NopPublisher) PublishDisc(*Disc) error        { return nil }
