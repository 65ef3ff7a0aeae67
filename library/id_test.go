package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDRoundTrip(t *testing.T) {
	internal := "0123456789abcdef0123456789abcdef01234567"[:InternalIDLength]

	external, err := ExternalID(internal)
	require.NoError(t, err)
	assert.Len(t, external, ExternalIDLength)

	back, err := InternalID(external)
	require.NoError(t, err)
	assert.Equal(t, internal, back)
}

// TestExternalID_KnownVector pins the substitution table against a
// known-correct external id, so a self-consistent but wrong pair of
// replacers (e.g. swapping which char stands for '=' padding) can't
// pass by round-tripping through itself.
func TestExternalID_KnownVector(t *testing.T) {
	internal := "0123456789abcdef0123456789abcdef01234567"
	const wantExternal = "ASNFZ4mrze8BI0VniavN7wEjRWc-"

	external, err := ExternalID(internal)
	require.NoError(t, err)
	assert.Equal(t, wantExternal, external)

	back, err := InternalID(wantExternal)
	require.NoError(t, err)
	assert.Equal(t, internal, back)
}

func TestInternalID_RejectsWrongLength(t *testing.T) {
	_, err := InternalID("too-short")
	assert.Error(t, err)
}

func TestExternalID_RejectsWrongLength(t *testing.T) {
	_, err := ExternalID("too-short")
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	internal := "0123456789abcdef0123456789abcdef01234567"
	assert.Equal(t, "/root/discs/0/"+internal+"/01234567.cdr", DataFile("/root", internal))
	assert.Equal(t, "/root/discs/0/"+internal+"/01234567.cod", RecordFile("/root", internal))
}
