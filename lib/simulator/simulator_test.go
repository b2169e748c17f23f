package simulator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/TecharoHQ/lbsim"
	"github.com/TecharoHQ/lbsim/lib/config"
	"github.com/TecharoHQ/lbsim/lib/leaderboard"
	"github.com/TecharoHQ/lbsim/lib/leaderboard/leaderboardtest"
	"github.com/TecharoHQ/lbsim/lib/signer"
)

const secret = "top-secret-api-key"

type sleepRecorder struct {
	calls []time.Duration
	// cancel, if set, is called on the nth sleep (1-based).
	cancelOn int
	cancel   context.CancelFunc
}

func (sr *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	sr.calls = append(sr.calls, d)
	if sr.cancel != nil && len(sr.calls) == sr.cancelOn {
		sr.cancel()
	}
	return ctx.Err()
}

func spawn(t *testing.T, p *config.Profile, sr *sleepRecorder, out io.Writer) (*Simulator, *leaderboardtest.Server) {
	t.Helper()

	srv := leaderboardtest.New(t, secret)
	p.BaseURL = srv.BaseURL()

	cli, err := leaderboard.New(leaderboard.Options{
		BaseURL: p.BaseURL,
		Signer:  signer.New(signer.Options{SecretKey: secret}),
	})
	if err != nil {
		t.Fatal(err)
	}

	sim, err := New(Options{
		Client:  cli,
		Profile: p,
		Rand:    rand.New(rand.NewPCG(1, 2)),
		Sleep:   sr.sleep,
		Out:     out,
	})
	if err != nil {
		t.Fatal(err)
	}

	return sim, srv
}

func TestGeneratedValuesInBounds(t *testing.T) {
	sim, err := New(Options{
		Client:  &leaderboard.Client{},
		Profile: config.Default(),
		Rand:    rand.New(rand.NewPCG(42, 42)),
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10000; i++ {
		sub := sim.NextSubmission()
		if sub.UserID < lbsim.MinUserID || sub.UserID > lbsim.MaxUserID {
			t.Fatalf("user id %d out of [%d, %d]", sub.UserID, lbsim.MinUserID, lbsim.MaxUserID)
		}

		if sub.Score < lbsim.MinScore || sub.Score > lbsim.MaxScore {
			t.Fatalf("score %d out of [%d, %d]", sub.Score, lbsim.MinScore, lbsim.MaxScore)
		}

		if d := sim.NextPause(); d < lbsim.MinSleep || d > lbsim.MaxSleep {
			t.Fatalf("pause %s out of [%s, %s]", d, lbsim.MinSleep, lbsim.MaxSleep)
		}
	}
}

func TestBoundsAreInclusive(t *testing.T) {
	p := config.Default()
	p.UserID = config.Range{Min: 7, Max: 8}
	p.Score = config.Range{Min: 100, Max: 101}

	sim, err := New(Options{
		Client:  &leaderboard.Client{},
		Profile: p,
		Rand:    rand.New(rand.NewPCG(3, 4)),
	})
	if err != nil {
		t.Fatal(err)
	}

	seenUsers := map[int64]bool{}
	seenScores := map[int]bool{}
	for i := 0; i < 1000; i++ {
		sub := sim.NextSubmission()
		seenUsers[sub.UserID] = true
		seenScores[sub.Score] = true
	}

	if !seenUsers[7] || !seenUsers[8] || len(seenUsers) != 2 {
		t.Errorf("wanted exactly user ids 7 and 8, got %v", seenUsers)
	}

	if !seenScores[100] || !seenScores[101] || len(seenScores) != 2 {
		t.Errorf("wanted exactly scores 100 and 101, got %v", seenScores)
	}
}

func TestBetweenExtremes(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))

	for _, tt := range []struct {
		name   string
		lo, hi int64
	}{
		{name: "full int64 range", lo: math.MinInt64, hi: math.MaxInt64},
		{name: "zero to max", lo: 0, hi: math.MaxInt64},
		{name: "min to zero", lo: math.MinInt64, hi: 0},
		{name: "max duration", lo: 0, hi: int64(time.Duration(math.MaxInt64))},
		{name: "equal", lo: 42, hi: 42},
	} {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 1000; i++ {
				if got := between(r, tt.lo, tt.hi); got < tt.lo || got > tt.hi {
					t.Fatalf("%d is outside [%d, %d]", got, tt.lo, tt.hi)
				}
			}
		})
	}
}

func TestNewRejectsOutOfBoundsProfile(t *testing.T) {
	for _, tt := range []struct {
		name   string
		userID config.Range
		score  config.Range
	}{
		{
			name:   "negative scores",
			userID: config.Range{Min: 1, Max: 5},
			score:  config.Range{Min: -5, Max: 5},
		},
		{
			name:   "user ids past the maximum",
			userID: config.Range{Min: 1, Max: 5_000_000_000},
			score:  config.Range{Min: lbsim.MinScore, Max: lbsim.MaxScore},
		},
		{
			name:   "whole int score range",
			userID: config.Range{Min: 1, Max: 5},
			score:  config.Range{Min: math.MinInt, Max: math.MaxInt},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			p := config.Default()
			p.UserID = tt.userID
			p.Score = tt.score

			_, err := New(Options{
				Client:  &leaderboard.Client{},
				Profile: p,
			})
			if !errors.Is(err, config.ErrRangeOutOfBounds) {
				t.Fatalf("wanted ErrRangeOutOfBounds, got: %v", err)
			}
		})
	}
}

func TestRunIterations(t *testing.T) {
	p := config.Default()
	p.Iterations = 3

	var out bytes.Buffer
	sr := &sleepRecorder{}
	sim, srv := spawn(t, p, sr, &out)

	st, err := sim.Run(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if st.Rounds != 3 {
		t.Errorf("wanted 3 rounds, got %d", st.Rounds)
	}

	for _, endpoint := range []string{leaderboard.EndpointSubmit, leaderboard.EndpointTop, leaderboard.EndpointRank} {
		if got := srv.Requests(endpoint); got != 3 {
			t.Errorf("wanted 3 %s requests, got %d", endpoint, got)
		}
	}

	if len(sr.calls) != 2 {
		t.Errorf("wanted a pause between rounds only (2), got %d", len(sr.calls))
	}

	for _, d := range sr.calls {
		if d < lbsim.MinSleep || d > lbsim.MaxSleep {
			t.Errorf("pause %s out of bounds", d)
		}
	}

	if got := strings.Count(out.String(), "successful post: "); got != 3 {
		t.Errorf("wanted 3 submit lines in output, got %d:\n%s", got, out.String())
	}

	if got := strings.Count(out.String(), "\n"); got != 9 {
		t.Errorf("wanted 9 output lines (3 per round), got %d:\n%s", got, out.String())
	}
}

func TestRunStopsOnSubmitFailure(t *testing.T) {
	p := config.Default()
	p.Iterations = 5

	sr := &sleepRecorder{}
	sim, srv := spawn(t, p, sr, io.Discard)
	srv.FailSubmitWith(http.StatusInternalServerError)

	st, err := sim.Run(t.Context())
	if !errors.Is(err, leaderboard.ErrUnexpectedStatus) {
		t.Fatalf("wanted ErrUnexpectedStatus, got: %v", err)
	}

	if st.Rounds != 0 {
		t.Errorf("wanted 0 completed rounds, got %d", st.Rounds)
	}

	if got := srv.Requests(leaderboard.EndpointSubmit); got != 1 {
		t.Errorf("wanted exactly 1 submit attempt, got %d", got)
	}

	if got := srv.Requests(leaderboard.EndpointTop); got != 0 {
		t.Errorf("loop kept going after a failed submit: %d top requests", got)
	}
}

func TestRunCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	sr := &sleepRecorder{cancelOn: 2, cancel: cancel}
	sim, srv := spawn(t, config.Default(), sr, io.Discard)

	st, err := sim.Run(ctx)
	if err != nil {
		t.Fatalf("cancellation should stop the loop cleanly, got: %v", err)
	}

	if st.Rounds != 2 {
		t.Errorf("wanted 2 rounds before cancellation, got %d", st.Rounds)
	}

	if got := srv.Requests(leaderboard.EndpointSubmit); got != 2 {
		t.Errorf("wanted 2 submits, got %d", got)
	}
}

func TestRunAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	sim, srv := spawn(t, config.Default(), &sleepRecorder{}, io.Discard)

	st, err := sim.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if st.Rounds != 0 || srv.Requests(leaderboard.EndpointSubmit) != 0 {
		t.Errorf("cancelled run did work: %+v", st)
	}
}

func TestNew(t *testing.T) {
	bad := config.Default()
	bad.Score = config.Range{Min: 10, Max: 1}

	for _, tt := range []struct {
		name string
		opts Options
		err  error
	}{
		{
			name: "no client",
			opts: Options{Profile: config.Default()},
			err:  ErrNoClient,
		},
		{
			name: "no profile",
			opts: Options{Client: &leaderboard.Client{}},
			err:  ErrNoProfile,
		},
		{
			name: "invalid profile",
			opts: Options{Client: &leaderboard.Client{}, Profile: bad},
			err:  config.ErrRangeInverted,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("wrong error")
			}
		})
	}
}
