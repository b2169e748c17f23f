// Package leaderboardtest runs an in-process leaderboard API for tests. It
// checks signatures the same way the real server does so tests can prove
// that what lbsim signs is what it sends.
package leaderboardtest

import (
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/TecharoHQ/lbsim"
	"github.com/TecharoHQ/lbsim/lib/leaderboard"
	"github.com/TecharoHQ/lbsim/lib/signer"
)

// BasePath is where the fake mounts the API, matching the real server.
const BasePath = "/api/leaderboard"

// Submission is one submit request as the fake received it.
type Submission struct {
	Header http.Header
	Body   []byte
	Value  leaderboard.ScoreSubmission
}

type Server struct {
	srv    *httptest.Server
	secret string

	lock        sync.Mutex
	totals      map[int64]int
	nonces      map[string]struct{}
	submissions []Submission
	requests    map[string]int
	submitCode  int
}

// New starts a fake leaderboard that accepts submissions signed with secret.
// It is closed when the test ends.
func New(t *testing.T, secret string) *Server {
	t.Helper()

	s := &Server{
		secret:   secret,
		totals:   map[int64]int{},
		nonces:   map[string]struct{}{},
		requests: map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+BasePath+"/submit", s.submit)
	mux.HandleFunc("GET "+BasePath+"/top", s.top)
	mux.HandleFunc("GET "+BasePath+"/rank/{user_id}", s.rank)

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)

	return s
}

// BaseURL is the value to hand to leaderboard.Options.BaseURL.
func (s *Server) BaseURL() string {
	return s.srv.URL + BasePath
}

// FailSubmitWith makes every following submit answer with code. Zero
// restores normal behavior.
func (s *Server) FailSubmitWith(code int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.submitCode = code
}

// Submissions returns every accepted submission in order.
func (s *Server) Submissions() []Submission {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Requests returns how many requests hit the named endpoint ("submit",
// "top" or "rank"), accepted or not.
func (s *Server) Requests(endpoint string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.requests[endpoint]
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.requests[leaderboard.EndpointSubmit]++

	if s.submitCode != 0 {
		writeJSON(w, s.submitCode, map[string]string{"error": "Failed to submit score"})
		return
	}

	timestamp := r.Header.Get(lbsim.HeaderTimestamp)
	nonce := r.Header.Get(lbsim.HeaderNonce)
	signature := r.Header.Get(lbsim.HeaderSignature)

	if timestamp == "" || nonce == "" || signature == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing security headers"})
		return
	}

	if _, err := strconv.ParseInt(timestamp, 10, 64); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid timestamp"})
		return
	}

	if _, ok := s.nonces[nonce]; ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Duplicate request"})
		return
	}
	s.nonces[nonce] = struct{}{}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
		return
	}

	want := signer.Sign(s.secret, timestamp, nonce, body)
	if !hmac.Equal([]byte(signature), []byte(want)) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
		return
	}

	var sub leaderboard.ScoreSubmission
	if err := json.Unmarshal(body, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body", "details": err.Error()})
		return
	}

	s.totals[sub.UserID] += sub.Score
	s.submissions = append(s.submissions, Submission{
		Header: r.Header.Clone(),
		Body:   body,
		Value:  sub,
	})

	writeJSON(w, http.StatusOK, leaderboard.SubmitResult{
		Message: "Score submitted successfully",
		UserID:  sub.UserID,
		Score:   sub.Score,
	})
}

// standings must be called with s.lock held.
func (s *Server) standings() []leaderboard.Entry {
	result := make([]leaderboard.Entry, 0, len(s.totals))
	for userID, total := range s.totals {
		result = append(result, leaderboard.Entry{
			ID:         userID,
			UserID:     userID,
			TotalScore: total,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalScore != result[j].TotalScore {
			return result[i].TotalScore > result[j].TotalScore
		}
		return result[i].UserID < result[j].UserID
	})

	for i := range result {
		result[i].Rank = i + 1
	}

	return result
}

func (s *Server) top(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.requests[leaderboard.EndpointTop]++

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	board := s.standings()
	if len(board) > limit {
		board = board[:limit]
	}

	writeJSON(w, http.StatusOK, leaderboard.TopPlayers{
		Leaderboard: board,
		Count:       len(board),
	})
}

func (s *Server) rank(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.requests[leaderboard.EndpointRank]++

	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid user ID format"})
		return
	}

	for _, e := range s.standings() {
		if e.UserID == userID {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Player not found"})
}
