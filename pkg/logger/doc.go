// Package logger builds *slog.Logger values for the service and its
// libraries.
//
// New assembles a text or JSON handler from functional options and wraps it
// with NewContextHandler, which appends attributes extracted from the
// context of each record. WithSessionContext together with WithSessionID lets
// every log line written on behalf of a connection carry its session id
// without threading a child logger through the call chain.
//
// The attribute helpers in attr.go keep key names consistent across packages:
//
//	log.InfoContext(ctx, "session admitted",
//	    logger.Username(name),
//	    logger.Active(stats.Active),
//	    logger.Duration(time.Since(start)),
//	)
//
// Error and Errors return an empty attribute for nil errors, so callers can
// log optional errors without a nil check.
//
// Libraries that accept an optional logger fall back to Noop.
package logger
