package codplayer

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	payload, err := json.Marshal([]string{"next"})
	require.NoError(t, err)
	cmd, err := decodeCommand(payload)
	require.NoError(t, err)
	assert.Equal(t, Command{Verb: "next"}, cmd)

	payload, err = json.Marshal([]string{"play", "3"})
	require.NoError(t, err)
	cmd, err = decodeCommand(payload)
	require.NoError(t, err)
	assert.Equal(t, Command{Verb: "play", Arg: "3"}, cmd)
}

func TestDecodeCommand_RejectsMalformed(t *testing.T) {
	_, err := decodeCommand([]byte("not json"))
	assert.Error(t, err)

	_, err = decodeCommand([]byte("[]"))
	assert.Error(t, err)
}

func TestEncodeRPCReplies(t *testing.T) {
	var ok []any
	require.NoError(t, json.Unmarshal(encodeRPCOK(), &ok))
	assert.Equal(t, []any{"ok"}, ok)

	var errReply []any
	require.NoError(t, json.Unmarshal(encodeRPCError(assert.AnError), &errReply))
	assert.Equal(t, []any{"error", assert.AnError.Error()}, errReply)
}

// fakeQueryHandler is a minimal QueryHandler double, standing in for
// Transport so queryReply can be tested without spinning one up.
type fakeQueryHandler struct {
	state    PlayerState
	ripState RipState
	disc     *Disc
}

func (f fakeQueryHandler) State() PlayerState { return f.state }
func (f fakeQueryHandler) RipState() RipState { return f.ripState }
func (f fakeQueryHandler) CurrentDisc() *Disc { return f.disc }

var _ QueryHandler = fakeQueryHandler{}

func TestNATSBus_QueryReply(t *testing.T) {
	handler := fakeQueryHandler{
		state:    PlayerState{State: StatePlay, Track: 2},
		ripState: RipState{State: RipAudio},
		disc:     &Disc{DiscID: "disc-x"},
	}
	b := &NATSBus{queryHandler: handler}

	reply, ok := b.queryReply(Command{Verb: "state"})
	require.True(t, ok)
	var stateReply []any
	require.NoError(t, json.Unmarshal(reply, &stateReply))
	assert.Equal(t, "ok", stateReply[0])

	reply, ok = b.queryReply(Command{Verb: "rip_state"})
	require.True(t, ok)
	assert.Contains(t, string(reply), `"AUDIO"`)

	reply, ok = b.queryReply(Command{Verb: "disc"})
	require.True(t, ok)
	assert.Contains(t, string(reply), "disc-x")

	_, ok = b.queryReply(Command{Verb: "play"})
	assert.False(t, ok, "mutating verbs must not be answered as queries")
}

func TestNATSBus_QueryReply_NoHandlerWired(t *testing.T) {
	b := &NATSBus{}
	_, ok := b.queryReply(Command{Verb: "state"})
	assert.False(t, ok)
}
