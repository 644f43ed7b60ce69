// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free
// of net/http lets services consume the caller's identity without importing
// transport code, and lets tests inject values directly:
//
//	ctx = requestcontext.WithSessionID(ctx, sessionID)
//	ctx = requestcontext.WithRequestID(ctx, "req-123")
package requestcontext

import (
	"context"
	"time"

	id "sevasetu/pkg/domain"
)

type (
	sessionIDKey   struct{}
	citizenIDKey   struct{}
	adminIDKey     struct{}
	adminRoleKey   struct{}
	deviceIDKey    struct{}
	deviceNameKey  struct{}
	clientIPKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// SessionID retrieves the citizen session ID from the context. Zero value when
// the request carried no session bearer.
func SessionID(ctx context.Context) id.SessionID {
	if v, ok := ctx.Value(sessionIDKey{}).(id.SessionID); ok {
		return v
	}
	return id.SessionID{}
}

// WithSessionID injects a citizen session ID.
func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// CitizenID retrieves the linked citizen identity, if any.
func CitizenID(ctx context.Context) id.CitizenID {
	if v, ok := ctx.Value(citizenIDKey{}).(id.CitizenID); ok {
		return v
	}
	return id.CitizenID{}
}

// WithCitizenID injects a citizen identity.
func WithCitizenID(ctx context.Context, citizenID id.CitizenID) context.Context {
	return context.WithValue(ctx, citizenIDKey{}, citizenID)
}

// AdminID retrieves the staff principal resolved by the admin middleware.
// Staff and citizen principals use separate keys so the two trust domains can
// never be confused by a shared accessor.
func AdminID(ctx context.Context) id.AdminID {
	if v, ok := ctx.Value(adminIDKey{}).(id.AdminID); ok {
		return v
	}
	return id.AdminID{}
}

// WithAdminID injects a staff principal.
func WithAdminID(ctx context.Context, adminID id.AdminID) context.Context {
	return context.WithValue(ctx, adminIDKey{}, adminID)
}

// AdminRole retrieves the staff role resolved alongside the admin principal.
func AdminRole(ctx context.Context) string {
	if v, ok := ctx.Value(adminRoleKey{}).(string); ok {
		return v
	}
	return ""
}

// WithAdminRole injects the staff role.
func WithAdminRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, adminRoleKey{}, role)
}

// DeviceID retrieves the client device identifier captured at session creation.
func DeviceID(ctx context.Context) string {
	if v, ok := ctx.Value(deviceIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithDeviceID injects a device identifier.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey{}, deviceID)
}

// DeviceName retrieves the human-readable device display name parsed from the
// request user agent.
func DeviceName(ctx context.Context) string {
	if v, ok := ctx.Value(deviceNameKey{}).(string); ok {
		return v
	}
	return ""
}

// WithDeviceName injects a device display name.
func WithDeviceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, deviceNameKey{}, name)
}

// ClientIP retrieves the remote address recorded by the middleware.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

// WithClientIP injects the remote address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// RequestID retrieves the correlation ID assigned to this request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request arrival time when set, falling back to time.Now().
// Tests inject a fixed time with WithTime to make time-dependent logic
// deterministic.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}

// WithTime injects the request arrival time.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
