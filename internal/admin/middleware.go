// Package admin hosts the staff trust domain: middleware, handlers, and the
// session service underneath them.
package admin

import (
	"context"
	"net/http"

	"sevasetu/internal/admin/models"
	"sevasetu/internal/admin/service"
	"sevasetu/internal/audit"
	"sevasetu/internal/platform/cookies"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/httputil"
	"sevasetu/pkg/requestcontext"
)

// RequireAdmin resolves the staff bearer cookie and rejects the request when
// no active, unexpired session backs it. The resolved admin id and role are
// placed on the context for handlers and the lifecycle service.
func RequireAdmin(admins *service.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookies.Value(r, cookies.Admin)
			admin, err := admins.CurrentUser(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			if admin == nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin session required"))
				return
			}

			ctx := requestcontext.WithAdminID(r.Context(), admin.ID)
			ctx = requestcontext.WithAdminRole(ctx, string(admin.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuditPublisher mirrors the audit pipeline's Emit for the middleware layer.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// RequireWriteRole rejects mutating requests from roles that may not change
// application state, and records the attempt. Mounted after RequireAdmin on
// write routes only.
func RequireWriteRole(auditor AuditPublisher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := models.Role(requestcontext.AdminRole(r.Context()))
			if !role.CanWrite() {
				if auditor != nil {
					auditor.Emit(r.Context(), audit.Event{
						Action:  audit.ActionForbiddenWrite,
						ActorID: requestcontext.AdminID(r.Context()),
						Detail:  r.URL.Path,
					})
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role may not change application state"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
