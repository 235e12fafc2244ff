package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/avelinsk/gostore/internal/domain/user"
)

type identityKey struct{}

// identityFrom returns the authenticated caller stored by the auth middleware.
func identityFrom(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(identityKey{}).(*user.User)
	return u, ok
}

// authenticate resolves the Bearer token into a caller identity. The token
// carries the user ID; the user row is loaded so role checks downstream see
// the current role, not the one at token issuance.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondError(r.Context(), w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := h.tokens.Verify(token)
		if err != nil {
			respondError(r.Context(), w, http.StatusUnauthorized, "invalid token")
			return
		}

		u, err := h.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				respondError(r.Context(), w, http.StatusUnauthorized, "unknown user")
				return
			}
			respondError(r.Context(), w, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return h[len(prefix):], true
}
