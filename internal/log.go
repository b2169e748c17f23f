package internal

import (
	"log"
	"os"
	"strings"
)

// noisyServerErrors are http.Server error log lines that only mean a metrics
// scraper went away or lbsim is shutting down.
var noisyServerErrors = []string{
	"context canceled",
	"broken pipe",
	"connection reset by peer",
}

// ErrorLogFilter drops noisyServerErrors and forwards everything else to
// Unwrap. A nil Unwrap discards all output.
type ErrorLogFilter struct {
	Unwrap *log.Logger
}

func (elf *ErrorLogFilter) Write(p []byte) (n int, err error) {
	msg := string(p)
	for _, noise := range noisyServerErrors {
		if strings.Contains(msg, noise) {
			return len(p), nil
		}
	}

	if elf.Unwrap != nil {
		return elf.Unwrap.Writer().Write(p)
	}

	return len(p), nil
}

// GetFilteredHTTPLogger returns a logger suitable for http.Server.ErrorLog
// that writes to stderr like the default logger, minus noisyServerErrors.
func GetFilteredHTTPLogger() *log.Logger {
	return log.New(&ErrorLogFilter{Unwrap: log.New(os.Stderr, "", log.LstdFlags)}, "", 0)
}
