// Package logging provides structured logging for photogram runs.
//
// It wraps Go's log/slog. Loggers are constructed explicitly and passed to
// the components that need them; nothing in photogram logs through a
// package-level logger.
//
// # Basic Usage
//
//	logger, err := logging.New(logging.Options{Dir: "/tmp/photogram", Level: "info"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	sessionLogger := logger.WithSession(id).WithPhase("drain")
//	sessionLogger.Warn("sample skipped", "sample", 12)
//
// With a directory, entries are JSON lines in photogram.log and the file is
// rotated by size (photogram.log.1 is the most recent backup). Without one,
// entries go to stderr as JSON or, with Format "text", as slog text.
//
// # Testing
//
// Use [NopLogger] to discard output, or pass a bytes.Buffer as
// [Options].Writer to assert on entries.
package logging
