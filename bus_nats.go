package codplayer

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

// NATS subjects, mirroring the ZeroMQ topic/RPC/queue shape from the
// original daemon's zerohub.py, translated to this module's message
// bus of choice.
const (
	subjectState    = "codplayer.state"
	subjectRipState = "codplayer.rip_state"
	subjectDisc     = "codplayer.disc"
	subjectRPC      = "codplayer.rpc"
	subjectCommands = "codplayer.commands"
	subjectButtons  = "codplayer.buttons"
)

// timestamped wraps every published payload with a wall-clock
// timestamp so subscribers can discard stale messages, per §6.
type timestamped struct {
	Timestamp float64         `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NATSBus is the one concrete StatePublisher/CommandSource adapter
// for this module, publishing state broadcasts and the player RPC
// reply on NATS subjects.
type NATSBus struct {
	conn     *nats.Conn
	logger   *Logger
	commands chan Command

	queryHandler QueryHandler
}

var _ StatePublisher = (*NATSBus)(nil)
var _ CommandSource = (*NATSBus)(nil)

// DialNATSBus connects to url and subscribes to the command queue and
// player RPC subjects.
func DialNATSBus(url string, logger *Logger) (*NATSBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, NewPlayerError(ConfigErrorKind, fmt.Errorf("connecting to bus %s: %w", url, err))
	}
	b := &NATSBus{conn: conn, logger: logger, commands: make(chan Command, 16)}

	if _, err := conn.Subscribe(subjectCommands, b.handleCommand); err != nil {
		conn.Close()
		return nil, NewPlayerError(ConfigErrorKind, err)
	}
	if _, err := conn.Subscribe(subjectRPC, b.handleRPC); err != nil {
		conn.Close()
		return nil, NewPlayerError(ConfigErrorKind, err)
	}
	return b, nil
}

func (b *NATSBus) Close() {
	b.conn.Close()
}

// SetQueryHandler wires the `state`/`rip_state`/`disc` RPC query verbs
// to h (normally the Transport), so handleRPC can reply with the
// actual requested value instead of a bare acknowledgement. Must be
// called before the bus starts receiving RPC traffic; typically right
// after the Transport is constructed.
func (b *NATSBus) SetQueryHandler(h QueryHandler) {
	b.queryHandler = h
}

func (b *NATSBus) Commands() <-chan Command {
	return b.commands
}

func (b *NATSBus) handleCommand(msg *nats.Msg) {
	cmd, err := decodeCommand(msg.Data)
	if err != nil {
		b.logger.WithComponent("bus").Warn("dropping malformed command", "err", err)
		return
	}
	select {
	case b.commands <- cmd:
	default:
		b.logger.WithComponent("bus").Warn("command queue full, dropping", "verb", cmd.Verb)
	}
}

// handleRPC accepts the same verbs as the command queue but replies
// with [ok, ...] / [error, message] per §6's request/response shape.
// The `state`/`rip_state` verbs and a bare `disc` are pure queries,
// answered directly from queryHandler; everything else (including
// `disc <id>`) is a mutating command
// forwarded to the queue like handleCommand, acknowledged once queued.
func (b *NATSBus) handleRPC(msg *nats.Msg) {
	cmd, err := decodeCommand(msg.Data)
	if err != nil {
		_ = msg.Respond(encodeRPCError(err))
		return
	}
	if reply, ok := b.queryReply(cmd); ok {
		_ = msg.Respond(reply)
		return
	}
	select {
	case b.commands <- cmd:
		_ = msg.Respond(encodeRPCOK())
	default:
		_ = msg.Respond(encodeRPCError(fmt.Errorf("command queue full")))
	}
}

// queryReply answers cmd directly if it names one of the read-only
// query verbs and a handler is wired, rather than forwarding it to the
// command queue.
func (b *NATSBus) queryReply(cmd Command) ([]byte, bool) {
	if b.queryHandler == nil {
		return nil, false
	}
	switch cmd.Verb {
	case "state":
		return encodeRPCValue(b.queryHandler.State()), true
	case "rip_state":
		return encodeRPCValue(b.queryHandler.RipState()), true
	case "disc":
		if cmd.Arg != "" {
			// `disc <id>` loads a disc; only a bare `disc` is a query.
			return nil, false
		}
		return encodeRPCValue(b.queryHandler.CurrentDisc()), true
	default:
		return nil, false
	}
}

func decodeCommand(data []byte) (Command, error) {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil || len(parts) == 0 {
		return Command{}, fmt.Errorf("bus: invalid command payload")
	}
	cmd := Command{Verb: parts[0]}
	if len(parts) > 1 {
		cmd.Arg = parts[1]
	}
	return cmd, nil
}

func encodeRPCOK() []byte {
	b, _ := json.Marshal([]any{"ok"})
	return b
}

func encodeRPCError(err error) []byte {
	b, _ := json.Marshal([]any{"error", err.Error()})
	return b
}

// encodeRPCValue replies [ok, v] for a query verb's answer.
func encodeRPCValue(v any) []byte {
	b, err := json.Marshal([]any{"ok", v})
	if err != nil {
		return encodeRPCError(err)
	}
	return b
}

func (b *NATSBus) publish(subject string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	env := timestamped{Timestamp: float64(nowUnix()), Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.conn.Publish(subject, data)
}

func (b *NATSBus) PublishState(s PlayerState) error    { return b.publish(subjectState, s) }
func (b *NATSBus) PublishRipState(s RipState) error     { return b.publish(subjectRipState, s) }
func (b *NATSBus) PublishDisc(d *Disc) error            { return b.publish(subjectDisc, d) }

// nowUnix is split out so a future watch-only clock can be substituted
// in tests without reaching for time.Now() throughout this file.
func nowUnix() int64 {
	return time.Now().Unix()
}
