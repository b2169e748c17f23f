package leaderboard

import (
	"encoding/json"
	"strconv"
)

// ScoreSubmission is the body of a submit request.
type ScoreSubmission struct {
	UserID int64 `json:"user_id"`
	Score  int   `json:"score"`
}

// CanonicalJSON returns the exact bytes that are signed and sent for s:
//
//	{"user_id": 42, "score": 500}
//
// Key order is fixed and there is one space after every colon and comma.
// Don't pass the result through json.Marshal or json.Compact; either would
// strip the spaces and break the signature.
func (s ScoreSubmission) CanonicalJSON() []byte {
	return s.AppendCanonicalJSON(make([]byte, 0, 40))
}

// AppendCanonicalJSON appends the canonical encoding of s to b.
func (s ScoreSubmission) AppendCanonicalJSON(b []byte) []byte {
	b = append(b, `{"user_id": `...)
	b = strconv.AppendInt(b, s.UserID, 10)
	b = append(b, `, "score": `...)
	b = strconv.AppendInt(b, int64(s.Score), 10)
	b = append(b, '}')
	return b
}

// SubmitResult is what the server answers to a successful submit.
type SubmitResult struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
	Score   int    `json:"score"`
}

// Entry is one row of the leaderboard.
type Entry struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	TotalScore int    `json:"total_score"`
	Rank       int    `json:"rank"`
	Username   string `json:"username,omitempty"`
}

// TopPlayers is the body of a /top response.
type TopPlayers struct {
	Leaderboard []Entry `json:"leaderboard"`
	Count       int     `json:"count"`
}

// Response carries the raw JSON the server sent along with a best-effort
// decoding of it. Servers are free to change their response shapes, so Value
// is only meaningful when Decoded is true; Body is always the bytes that came
// back.
type Response[T any] struct {
	StatusCode int
	RequestID  string
	Body       json.RawMessage
	Value      T
	Decoded    bool
}

// OK reports whether the server answered with a 2xx status.
func (r *Response[T]) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
