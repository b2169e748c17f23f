// Package simulator drives leaderboard traffic: each round submits a random
// score for a random player, then reads the top players and that player's
// rank.
package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/TecharoHQ/lbsim/lib/config"
	"github.com/TecharoHQ/lbsim/lib/leaderboard"
)

var (
	ErrNoClient  = errors.New("simulator: a leaderboard client is required")
	ErrNoProfile = errors.New("simulator: a profile is required")
)

// Leaderboard is the part of *leaderboard.Client the simulator uses.
type Leaderboard interface {
	SubmitScore(ctx context.Context, sub leaderboard.ScoreSubmission) (*leaderboard.Response[leaderboard.SubmitResult], error)
	TopPlayers(ctx context.Context) (*leaderboard.Response[leaderboard.TopPlayers], error)
	Rank(ctx context.Context, userID int64) (*leaderboard.Response[leaderboard.Entry], error)
}

type Options struct {
	Client  Leaderboard
	Profile *config.Profile

	// Rand drives user ids, scores and pauses. Defaults to a randomly seeded
	// PCG source.
	Rand *rand.Rand

	// Sleep pauses between rounds. It must return early with ctx.Err() when
	// ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// Out receives the response bodies. Defaults to os.Stdout.
	Out io.Writer

	Logger *slog.Logger
}

type Simulator struct {
	client  Leaderboard
	profile config.Profile
	rand    *rand.Rand
	sleep   func(ctx context.Context, d time.Duration) error
	out     io.Writer
	logger  *slog.Logger
}

// Stats summarizes a run.
type Stats struct {
	Rounds int
	Slept  time.Duration
}

func New(opts Options) (*Simulator, error) {
	if opts.Client == nil {
		return nil, ErrNoClient
	}

	if opts.Profile == nil {
		return nil, ErrNoProfile
	}

	if err := opts.Profile.Valid(); err != nil {
		return nil, err
	}

	result := &Simulator{
		client:  opts.Client,
		profile: *opts.Profile,
		rand:    opts.Rand,
		sleep:   opts.Sleep,
		out:     opts.Out,
		logger:  opts.Logger,
	}

	if result.rand == nil {
		result.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if result.sleep == nil {
		result.sleep = sleep
	}

	if result.out == nil {
		result.out = os.Stdout
	}

	if result.logger == nil {
		result.logger = slog.Default()
	}

	return result, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// between picks uniformly from [lo, hi]. The span is computed in uint64 so
// it cannot overflow for any pair of int64 bounds.
func between(r *rand.Rand, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}

	span := uint64(hi) - uint64(lo)
	if span == math.MaxUint64 {
		return int64(r.Uint64())
	}

	return lo + int64(r.Uint64N(span+1))
}

// NextSubmission picks a user id and score uniformly from the profile's
// ranges, both inclusive.
func (s *Simulator) NextSubmission() leaderboard.ScoreSubmission {
	return leaderboard.ScoreSubmission{
		UserID: between(s.rand, int64(s.profile.UserID.Min), int64(s.profile.UserID.Max)),
		Score:  int(between(s.rand, int64(s.profile.Score.Min), int64(s.profile.Score.Max))),
	}
}

// NextPause picks how long to wait before the next round.
func (s *Simulator) NextPause() time.Duration {
	return time.Duration(between(s.rand, int64(s.profile.Sleep.Min), int64(s.profile.Sleep.Max)))
}

// Round runs one submit, top, rank sequence and prints each response body.
func (s *Simulator) Round(ctx context.Context) error {
	sub := s.NextSubmission()
	lg := s.logger.With("user_id", sub.UserID, "score", sub.Score)

	posted, err := s.client.SubmitScore(ctx, sub)
	if err != nil {
		return fmt.Errorf("submit score: %w", err)
	}
	submitted.Inc()
	lg.Debug("score submitted", "request_id", posted.RequestID)
	fmt.Fprintf(s.out, "successful post: %s\n", bytes.TrimSpace(posted.Body))

	top, err := s.client.TopPlayers(ctx)
	if err != nil {
		return fmt.Errorf("get top players: %w", err)
	}
	fmt.Fprintf(s.out, "%s\n", bytes.TrimSpace(top.Body))

	rank, err := s.client.Rank(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("get rank for user %d: %w", sub.UserID, err)
	}
	fmt.Fprintf(s.out, "%s\n", bytes.TrimSpace(rank.Body))

	if rank.Decoded {
		lg.Debug("player ranked", "rank", rank.Value.Rank, "total_score", rank.Value.TotalScore)
	}

	return nil
}

// Run plays rounds until the profile's iteration count is reached (forever
// when it is zero), ctx is done, or a round fails. Cancellation is a normal
// way to stop and is not reported as an error.
func (s *Simulator) Run(ctx context.Context) (Stats, error) {
	var st Stats

	for s.profile.Iterations == 0 || st.Rounds < s.profile.Iterations {
		if ctx.Err() != nil {
			break
		}

		if err := s.Round(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				break
			}
			return st, fmt.Errorf("round %d: %w", st.Rounds+1, err)
		}

		st.Rounds++
		rounds.Inc()

		if s.profile.Iterations != 0 && st.Rounds >= s.profile.Iterations {
			break
		}

		pause := s.NextPause()
		if err := s.sleep(ctx, pause); err != nil {
			break
		}
		st.Slept += pause
	}

	s.logger.Info("simulation finished", "rounds", st.Rounds, "slept", st.Slept)
	return st, nil
}
