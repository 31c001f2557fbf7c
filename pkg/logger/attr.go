package logger

import (
	"log/slog"
	"time"
)

// Error records err under "error". A nil error yields an empty Attr, which
// slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the emitting component under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Tenant records a tenant identifier (slug) under "tenant".
func Tenant(identifier string) slog.Attr {
	if identifier == "" {
		return slog.Attr{}
	}
	return slog.String("tenant", identifier)
}

// Method records how a tenant identifier was derived under "resolution_method".
func Method(method string) slog.Attr {
	return slog.String("resolution_method", method)
}

// Path records a request path under "path".
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// Host records a request host under "host".
func Host(host string) slog.Attr {
	return slog.String("host", host)
}

// Role records a session role under "role".
func Role(role string) slog.Attr {
	if role == "" {
		return slog.Attr{}
	}
	return slog.String("role", role)
}

// Duration records d under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
