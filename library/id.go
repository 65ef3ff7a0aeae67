// Package library implements the on-disk, content-addressed disc
// store described in spec §6 — exactly as much of it as DiscSource
// needs to locate a disc's data file and record, not the full
// metadata-editing/search surface of the original daemon's db.py.
package library

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// ExternalIDLength is the length of a disc's external (MusicBrainz
// style) textual identifier.
const ExternalIDLength = 28

// InternalIDLength is the length of a disc's internal 40-hex-char
// database identifier.
const InternalIDLength = 40

// externalReplacer and internalReplacer mirror MusicBrainz's
// base64-url-ish disc ID alphabet: the external id is a modified
// base64 of the 20-byte (=40 hex char) SHA-1-style digest used
// internally, with '.', '_', '-' standing in for '+', '/', '='
// (matching the original db.py's DISC_ID_TO_BASE64 translation table).
var externalReplacer = strings.NewReplacer(".", "+", "_", "/", "-", "=")
var internalReplacer = strings.NewReplacer("+", ".", "/", "_", "=", "-")

// InternalID converts an external 28-character disc id into its
// 40-hex-character internal form.
func InternalID(external string) (string, error) {
	if len(external) != ExternalIDLength {
		return "", fmt.Errorf("library: invalid external disc id %q: want %d chars", external, ExternalIDLength)
	}
	b64 := externalReplacer.Replace(external)
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("library: invalid external disc id %q: %w", external, err)
	}
	internal := hex.EncodeToString(raw)
	if len(internal) != InternalIDLength {
		return "", fmt.Errorf("library: decoded disc id %q has unexpected length %d", external, len(internal))
	}
	return internal, nil
}

// ExternalID converts a 40-hex-character internal disc id back into
// its 28-character external form.
func ExternalID(internal string) (string, error) {
	if len(internal) != InternalIDLength {
		return "", fmt.Errorf("library: invalid internal disc id %q: want %d hex chars", internal, InternalIDLength)
	}
	raw, err := hex.DecodeString(internal)
	if err != nil {
		return "", fmt.Errorf("library: invalid internal disc id %q: %w", internal, err)
	}
	b64 := base64.StdEncoding.EncodeToString(raw)
	external := internalReplacer.Replace(b64)
	if len(external) != ExternalIDLength {
		return "", fmt.Errorf("library: encoded disc id has unexpected length %d", len(external))
	}
	return external, nil
}
