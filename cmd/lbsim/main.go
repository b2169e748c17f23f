package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/TecharoHQ/lbsim"
	"github.com/TecharoHQ/lbsim/internal"
	"github.com/TecharoHQ/lbsim/lib/config"
	"github.com/TecharoHQ/lbsim/lib/leaderboard"
	"github.com/TecharoHQ/lbsim/lib/signer"
	"github.com/TecharoHQ/lbsim/lib/simulator"
	"github.com/TecharoHQ/lbsim/lib/store"
	_ "github.com/TecharoHQ/lbsim/lib/store/all"
	"github.com/facebookgo/flagenv"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiSecretKey       = flag.String("api-secret-key", lbsim.DefaultSecretKey, "HMAC key shared with the leaderboard server, used to sign score submissions")
	baseURL            = flag.String("base-url", "", "leaderboard API root, overrides the profile's baseURL (default "+lbsim.DefaultBaseURL+")")
	dumpProfile        = flag.Bool("dump-profile", false, "print the effective traffic profile as YAML and exit")
	iterations         = flag.Int("iterations", -1, "number of submit/top/rank rounds to run, 0 runs until interrupted, overrides the profile when set")
	metricsBind        = flag.String("metrics-bind", "", "if set, network address to serve Prometheus metrics on, e.g. :9090")
	metricsBindNetwork = flag.String("metrics-bind-network", "tcp", "network family for the metrics server to bind to")
	profileFname       = flag.String("profile", "", "full path to a traffic profile (defaults to the built-in profile)")
	slogLevel          = flag.String("slog-level", "INFO", "logging level (see https://pkg.go.dev/log/slog#hdr-Levels)")
	storeBackend       = flag.String("store", "memory", "where to record issued nonces: "+strings.Join(store.Methods(), ", "))
	storeConfig        = flag.String("store-config", "", "JSON configuration for the nonce store, e.g. {\"url\": \"redis://localhost:6379/0\"} for valkey")
	timeout            = flag.Duration("timeout", 0, "per-request timeout, overrides the profile when set")
	topLimit           = flag.Int("top-limit", -1, "number of players to ask /top for, overrides the profile when set")
	versionFlag        = flag.Bool("version", false, "print lbsim version")
)

// applyFlags overlays explicitly set flags (or their environment variables)
// on top of the loaded profile.
func applyFlags(p *config.Profile) {
	if *baseURL != "" {
		p.BaseURL = *baseURL
	}

	if *iterations >= 0 {
		p.Iterations = *iterations
	}

	if *topLimit >= 0 {
		p.TopLimit = *topLimit
	}

	if *timeout > 0 {
		p.Timeout = *timeout
	}
}

func main() {
	flagenv.Parse()
	flag.Parse()

	if *versionFlag {
		fmt.Println("lbsim", lbsim.Version)
		return
	}

	internal.InitSlog(*slogLevel)

	profile, err := config.LoadOrDefault(*profileFname)
	if err != nil {
		log.Fatalf("can't load traffic profile: %v", err)
	}

	applyFlags(profile)

	if err := profile.Valid(); err != nil {
		log.Fatalf("[misconfiguration] %v", err)
	}

	if *dumpProfile {
		if err := profile.WriteYAML(os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *apiSecretKey == lbsim.DefaultSecretKey {
		slog.Warn("API_SECRET_KEY is not set, signing with the placeholder secret; the server must use the same placeholder")
	}

	wg := new(sync.WaitGroup)
	// install signal handler
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nonces, err := store.Build(ctx, *storeBackend, json.RawMessage(*storeConfig))
	if err != nil {
		log.Fatalf("can't set up %s nonce store: %v", *storeBackend, err)
	}
	defer func() {
		if err := store.Close(nonces); err != nil {
			slog.Error("failed to close nonce store", "store", *storeBackend, "err", err)
		}
	}()

	sgn := signer.New(signer.Options{
		SecretKey: *apiSecretKey,
		Ledger:    nonces,
	})

	runID := uuid.Must(uuid.NewV7()).String()
	lg := slog.With("run_id", runID)

	cli, err := leaderboard.New(leaderboard.Options{
		BaseURL:  profile.BaseURL,
		Signer:   sgn,
		TopLimit: profile.TopLimit,
		Timeout:  profile.Timeout,
		Logger:   lg,
	})
	if err != nil {
		log.Fatalf("can't construct leaderboard client: %v", err)
	}

	sim, err := simulator.New(simulator.Options{
		Client:  cli,
		Profile: profile,
		Logger:  lg,
	})
	if err != nil {
		log.Fatalf("can't construct simulator: %v", err)
	}

	if *metricsBind != "" {
		wg.Add(1)
		go metricsServer(ctx, wg.Done)
	}

	lg.Info(
		"starting simulation",
		"base-url", profile.BaseURL,
		"iterations", profile.Iterations,
		"top-limit", profile.TopLimit,
		"timeout", profile.Timeout,
		"user-id-range", profile.UserID,
		"score-range", profile.Score,
		"sleep-min", profile.Sleep.Min,
		"sleep-max", profile.Sleep.Max,
		"store", *storeBackend,
		"secret-fingerprint", sgn.Fingerprint(),
		"version", lbsim.Version,
	)

	_, runErr := sim.Run(ctx)

	// Let the metrics server go away with the rest of the process.
	stop()
	wg.Wait()

	if runErr != nil {
		// log.Fatal skips deferred calls.
		store.Close(nonces)
		log.Fatalf("simulation failed: %v", runErr)
	}
}

func metricsServer(ctx context.Context, done func()) {
	defer done()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := http.Server{Handler: mux, ErrorLog: internal.GetFilteredHTTPLogger()}
	listener, err := net.Listen(*metricsBindNetwork, *metricsBind)
	if err != nil {
		log.Fatalf("failed to bind metrics server to %s: %v", *metricsBind, err)
	}
	slog.Debug("listening for metrics", "network", *metricsBindNetwork, "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(c); err != nil {
			log.Printf("cannot shut down: %v", err)
		}
	}()

	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
