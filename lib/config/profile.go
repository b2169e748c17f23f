// Package config loads lbsim traffic profiles.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/TecharoHQ/lbsim"
	"github.com/TecharoHQ/lbsim/data"
	"k8s.io/apimachinery/pkg/util/yaml"
	sigsyaml "sigs.k8s.io/yaml"
)

var (
	ErrInvalidBaseURL       = errors.New("config.Profile: baseURL must be an absolute http or https URL")
	ErrNegativeTopLimit     = errors.New("config.Profile: topLimit must not be negative")
	ErrNegativeIterations   = errors.New("config.Profile: iterations must not be negative")
	ErrDurationDoesNotParse = errors.New("config.Profile: duration does not parse, see https://pkg.go.dev/time#ParseDuration (formatted like 500ms, 2s, 1m)")
	ErrNonPositiveTimeout   = errors.New("config.Profile: timeout must be positive")
	ErrRangeInverted        = errors.New("config.Range: min must not be greater than max")
	ErrUserIDBelowOne       = errors.New("config.Profile: userID.min must be at least 1")
	ErrNegativeSleep        = errors.New("config.Profile: sleep.min must not be negative")
	ErrRangeOutOfBounds     = errors.New("config.Range: range is outside the allowed bounds")
)

// DefaultProfileName is the embedded profile used when no file is given.
const DefaultProfileName = "profiles/default.yaml"

// Range is an inclusive integer range.
type Range struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

func (r Range) Valid() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: [%d, %d]", ErrRangeInverted, r.Min, r.Max)
	}
	return nil
}

// Within reports an error unless r lies inside [lo, hi].
func (r Range) Within(lo, hi int) error {
	if r.Min < lo || r.Max > hi {
		return fmt.Errorf("%w: [%d, %d] is not within [%d, %d]", ErrRangeOutOfBounds, r.Min, r.Max, lo, hi)
	}
	return nil
}

// DurationRange is an inclusive range of durations.
type DurationRange struct {
	Min time.Duration
	Max time.Duration
}

type durationRangeFile struct {
	Min string `json:"min" yaml:"min"`
	Max string `json:"max" yaml:"max"`
}

type fileProfile struct {
	BaseURL    string            `json:"baseURL" yaml:"baseURL"`
	TopLimit   int               `json:"topLimit" yaml:"topLimit"`
	Iterations int               `json:"iterations" yaml:"iterations"`
	Timeout    string            `json:"timeout" yaml:"timeout"`
	UserID     Range             `json:"userID" yaml:"userID"`
	Score      Range             `json:"score" yaml:"score"`
	Sleep      durationRangeFile `json:"sleep" yaml:"sleep"`
}

// Profile describes what traffic to generate and where to send it.
type Profile struct {
	BaseURL    string
	TopLimit   int
	Iterations int
	Timeout    time.Duration
	UserID     Range
	Score      Range
	Sleep      DurationRange
}

// Default returns the built-in bounds: user ids in [1, 1000000], scores in
// [100, 10000] and a pause of 0.5 to 2 seconds between rounds.
func Default() *Profile {
	return &Profile{
		BaseURL: lbsim.DefaultBaseURL,
		Timeout: 10 * time.Second,
		UserID:  Range{Min: lbsim.MinUserID, Max: lbsim.MaxUserID},
		Score:   Range{Min: lbsim.MinScore, Max: lbsim.MaxScore},
		Sleep:   DurationRange{Min: lbsim.MinSleep, Max: lbsim.MaxSleep},
	}
}

func (p *Profile) Valid() error {
	var errs []error

	u, err := url.Parse(p.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err))
	case u.Scheme != "http" && u.Scheme != "https", u.Host == "":
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBaseURL, p.BaseURL))
	}

	if p.TopLimit < 0 {
		errs = append(errs, ErrNegativeTopLimit)
	}

	if p.Iterations < 0 {
		errs = append(errs, ErrNegativeIterations)
	}

	if p.Timeout <= 0 {
		errs = append(errs, ErrNonPositiveTimeout)
	}

	if err := p.UserID.Valid(); err != nil {
		errs = append(errs, fmt.Errorf("userID: %w", err))
	}

	if p.UserID.Min < 1 {
		errs = append(errs, ErrUserIDBelowOne)
	}

	if err := p.UserID.Within(lbsim.MinUserID, lbsim.MaxUserID); err != nil {
		errs = append(errs, fmt.Errorf("userID: %w", err))
	}

	if err := p.Score.Valid(); err != nil {
		errs = append(errs, fmt.Errorf("score: %w", err))
	}

	if err := p.Score.Within(lbsim.MinScore, lbsim.MaxScore); err != nil {
		errs = append(errs, fmt.Errorf("score: %w", err))
	}

	if p.Sleep.Min < 0 {
		errs = append(errs, ErrNegativeSleep)
	}

	if p.Sleep.Min > p.Sleep.Max {
		errs = append(errs, fmt.Errorf("sleep: %w: [%s, %s]", ErrRangeInverted, p.Sleep.Min, p.Sleep.Max))
	}

	if len(errs) != 0 {
		return fmt.Errorf("profile is not valid:\n%w", errors.Join(errs...))
	}

	return nil
}

func (fp *fileProfile) parse() (*Profile, error) {
	var errs []error

	parse := func(field, val string) time.Duration {
		d, err := time.ParseDuration(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: ParseDuration(%q) returned: %w", ErrDurationDoesNotParse, field, val, err))
		}
		return d
	}

	result := &Profile{
		BaseURL:    fp.BaseURL,
		TopLimit:   fp.TopLimit,
		Iterations: fp.Iterations,
		Timeout:    parse("timeout", fp.Timeout),
		UserID:     fp.UserID,
		Score:      fp.Score,
		Sleep: DurationRange{
			Min: parse("sleep.min", fp.Sleep.Min),
			Max: parse("sleep.max", fp.Sleep.Max),
		},
	}

	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}

	return result, nil
}

func (p *Profile) file() fileProfile {
	return fileProfile{
		BaseURL:    p.BaseURL,
		TopLimit:   p.TopLimit,
		Iterations: p.Iterations,
		Timeout:    p.Timeout.String(),
		UserID:     p.UserID,
		Score:      p.Score,
		Sleep: durationRangeFile{
			Min: p.Sleep.Min.String(),
			Max: p.Sleep.Max.String(),
		},
	}
}

// Load reads a YAML (or JSON) profile. Fields the document leaves out keep
// the values from Default.
func Load(fin io.Reader, fname string) (*Profile, error) {
	fp := Default().file()

	if err := yaml.NewYAMLToJSONDecoder(fin).Decode(&fp); err != nil {
		return nil, fmt.Errorf("can't parse profile YAML %s: %w", fname, err)
	}

	p, err := fp.parse()
	if err != nil {
		return nil, fmt.Errorf("can't parse profile %s: %w", fname, err)
	}

	if err := p.Valid(); err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}

	return p, nil
}

// LoadOrDefault loads the profile at fname, or the embedded default profile
// when fname is empty.
func LoadOrDefault(fname string) (*Profile, error) {
	var fin io.ReadCloser
	var err error

	if fname != "" {
		fin, err = os.Open(fname)
		if err != nil {
			return nil, fmt.Errorf("can't open profile file %s: %w", fname, err)
		}
	} else {
		fname = "(data)/" + DefaultProfileName
		fin, err = data.Profiles.Open(DefaultProfileName)
		if err != nil {
			return nil, fmt.Errorf("[unexpected] can't open builtin profile %s: %w", fname, err)
		}
	}

	defer func(fin io.ReadCloser) {
		err := fin.Close()
		if err != nil {
			slog.Error("failed to close profile file", "file", fname, "err", err)
		}
	}(fin)

	return Load(fin, fname)
}

// WriteYAML writes p to w in the same format Load reads.
func (p *Profile) WriteYAML(w io.Writer) error {
	out, err := sigsyaml.Marshal(p.file())
	if err != nil {
		return fmt.Errorf("can't encode profile: %w", err)
	}

	_, err = w.Write(out)
	return err
}
