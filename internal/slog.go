package internal

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/TecharoHQ/lbsim"
)

func InitSlog(level string) {
	slog.SetDefault(NewLogger(os.Stderr, level))
}

// NewLogger builds the JSON logger lbsim uses, writing to w at the given
// level. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var programLevel slog.Level
	if err := (&programLevel).UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v, using info\n", level, err)
		programLevel = slog.LevelInfo
	}

	leveler := &slog.LevelVar{}
	leveler.Set(programLevel)

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     leveler,
	})
	return slog.New(h)
}

// GetRequestLogger annotates lg with the details of an outgoing request.
func GetRequestLogger(lg *slog.Logger, r *http.Request) *slog.Logger {
	if lg == nil {
		lg = slog.Default()
	}

	return lg.With(
		"method", r.Method,
		"url", r.URL.String(),
		"request_id", r.Header.Get(lbsim.HeaderRequestID),
		"nonce", r.Header.Get(lbsim.HeaderNonce),
	)
}
