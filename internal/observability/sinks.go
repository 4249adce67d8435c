package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// ClientSinks is the process-owned registry of per-client diagnostic loggers.
// Each username gets exactly one logger for the lifetime of the process,
// writing to <dir>/GameClient_<name>.log. Registries receive the sinks by
// injection, so a client rebuilt by a hot reload keeps writing to the same file.
//
// All methods are safe for concurrent use.
type ClientSinks struct {
	dir    string
	level  zapcore.Level
	logger *zap.Logger

	mu    sync.Mutex
	sinks map[string]*zap.Logger
	files []*os.File
}

// NewClientSinks creates a sink registry rooted at dir.
//
// Precondition: logger must be non-nil. An empty dir disables file output.
// Postcondition: Returns an empty registry; no files are opened until For is called.
func NewClientSinks(dir string, level zapcore.Level, logger *zap.Logger) *ClientSinks {
	return &ClientSinks{
		dir:    dir,
		level:  level,
		logger: logger,
		sinks:  make(map[string]*zap.Logger),
	}
}

// For returns the diagnostic logger for username, creating it on first use.
// Failure to open the log file degrades to a no-op logger; it is never
// reported to the caller.
//
// Postcondition: Repeated calls with the same username return the same logger.
func (s *ClientSinks) For(username string) *zap.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.sinks[username]; ok {
		return l
	}

	l := s.open(username)
	s.sinks[username] = l
	return l
}

func (s *ClientSinks) open(username string) *zap.Logger {
	if s.dir == "" {
		return zap.NewNop()
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Warn("creating diagnostics dir", zap.String("dir", s.dir), zap.Error(err))
		return zap.NewNop()
	}

	path := filepath.Join(s.dir, SinkFileName(username))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn("opening client diagnostics file",
			zap.String("username", username),
			zap.String("path", path),
			zap.Error(err),
		)
		return zap.NewNop()
	}
	s.files = append(s.files, f)

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), s.level)
	return zap.New(core).Named(fmt.Sprintf("GameClient(%s)", username))
}

// SinkFileName returns the file name used for username's diagnostics.
// Characters outside [A-Za-z0-9_.-] are replaced so a username can never
// escape the diagnostics directory.
func SinkFileName(username string) string {
	return "GameClient_" + unsafeFileChars.ReplaceAllString(username, "_") + ".log"
}

// Len returns the number of sinks created so far.
func (s *ClientSinks) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sinks)
}

// Close flushes and closes every open sink file.
//
// Postcondition: Loggers handed out earlier keep working but discard output errors.
func (s *ClientSinks) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.sinks {
		_ = l.Sync()
	}
	var firstErr error
	for _, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.files = nil
	return firstErr
}
