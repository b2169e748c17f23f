// Package lbsim contains the version number and shared defaults for the
// leaderboard traffic simulator.
package lbsim

import "time"

// Version is the current version of lbsim.
//
// This variable is set at build time using the -X linker flag. If not set,
// it defaults to "devel".
var Version = "devel"

// DefaultBaseURL is the leaderboard API the simulator talks to when nothing
// else is configured.
const DefaultBaseURL = "http://localhost:8080/api/leaderboard"

// DefaultSecretKey is the placeholder HMAC key used when API_SECRET_KEY is
// not set. It matches the placeholder shipped with the leaderboard server.
const DefaultSecretKey = "top-secret-api-key"

// Headers attached to signed write requests.
const (
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSignature = "X-Signature"
	HeaderRequestID = "X-Request-Id"
)

// Bounds for generated traffic.
const (
	MinScore  = 100
	MaxScore  = 10000
	MinUserID = 1
	MaxUserID = 1000000

	MinSleep = 500 * time.Millisecond
	MaxSleep = 2 * time.Second
)

// NonceWindow is how long the leaderboard server remembers a nonce. Nonces
// issued by this client are tracked for the same window.
const NonceWindow = 10 * time.Minute

// UserAgent is sent with every request.
func UserAgent() string {
	return "lbsim/" + Version
}
