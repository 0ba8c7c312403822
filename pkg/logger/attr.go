package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// SessionID records the session handle under the key "session_id".
// If id is nil, it returns an empty Attr.
func SessionID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("session_id", id)
}

// Username records the authenticated user under the key "username".
// Empty names are skipped so pre-auth log lines stay clean.
func Username(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("username", name)
}

// RemoteAddr records the peer address under the key "remote_addr".
func RemoteAddr(addr string) slog.Attr {
	return slog.String("remote_addr", addr)
}

// Command records the protocol command under the key "command".
func Command(name string) slog.Attr {
	return slog.String("command", name)
}

// Position records a 1-based waiting queue position under the key "position".
func Position(pos int) slog.Attr {
	return slog.Int("position", pos)
}

// Capacity records the admission capacity under the key "capacity".
func Capacity(n int) slog.Attr {
	return slog.Int("capacity", n)
}

// Active records the number of active sessions under the key "active".
func Active(n int) slog.Attr {
	return slog.Int("active", n)
}

// Waiting records the number of queued sessions under the key "waiting".
func Waiting(n int) slog.Attr {
	return slog.Int("waiting", n)
}

// Keys records how many keys an operation touched under the key "keys".
func Keys(n int) slog.Attr {
	return slog.Int("keys", n)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Addr records a listen address under the key "addr".
func Addr(addr string) slog.Attr {
	return slog.String("addr", addr)
}
