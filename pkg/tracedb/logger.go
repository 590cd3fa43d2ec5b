package tracedb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// badgerLogger routes badger's printf-style logging into slog. Badger is
// chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) logf(level slog.Level, format string, args ...any) {
	if !l.log.Enabled(context.Background(), level) {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.log.Log(context.Background(), level, msg, "component", "badger")
}

func (l badgerLogger) Errorf(format string, args ...any) { l.logf(slog.LevelError, format, args...) }

func (l badgerLogger) Warningf(format string, args ...any) { l.logf(slog.LevelWarn, format, args...) }

func (l badgerLogger) Infof(format string, args ...any) { l.logf(slog.LevelDebug, format, args...) }

func (l badgerLogger) Debugf(format string, args ...any) { l.logf(slog.LevelDebug-4, format, args...) }
