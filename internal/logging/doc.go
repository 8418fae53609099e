// Package logging provides structured logging for postflow.
//
// This package wraps Go's log/slog to provide JSON-formatted logs carrying
// the tenant, post and command a line belongs to, so the history of a single
// post can be filtered out of a shared log stream.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers created
// via With* methods share the underlying writer and level.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/postflow/postflow.log", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithTenant("t1").WithPost("p1").Info("post submitted", "steps", 2)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"post submitted","tenant_id":"t1","post_id":"p1","steps":2}
//
// # Changing the Level at Runtime
//
// The level is held in a slog.LevelVar shared by a logger and all of its
// children. The worker command calls [Logger.SetLevel] when the configuration
// file changes.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output, or [NewWriterLogger]
// with a bytes.Buffer to assert on emitted lines.
package logging
