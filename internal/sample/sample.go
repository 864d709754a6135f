// Package sample ships a canned OpenSky response for first runs without network.
package sample

import _ "embed"

//go:embed opensky-sample.json
var payload []byte

// Payload returns a copy of the bundled response body.
func Payload() []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	return out
}
