package httppresentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-orders/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability/logctx"
)

// Claims is the bearer token payload: sub is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type actorKey struct{}

func withActor(ctx context.Context, a identity.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the caller stored by Authenticate.
func ActorFrom(ctx context.Context) (identity.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(identity.Actor)
	return a, ok
}

// Authenticate verifies an HS256 bearer token and stores the caller on the
// request context.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := verify(parser, keyFunc, r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := logctx.Enrich(withActor(r.Context(), actor),
				observability.F("user_id", actor.ID),
				observability.F("role", actor.Role.String()),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verify(parser *jwt.Parser, keyFunc jwt.Keyfunc, header string) (identity.Actor, error) {
	raw, ok := bearerToken(header)
	if !ok {
		return identity.Actor{}, fmt.Errorf("%w: missing bearer token", apperr.ErrUnauthorized)
	}

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return identity.Actor{}, fmt.Errorf("%w: token expired", apperr.ErrUnauthorized)
		}
		return identity.Actor{}, fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return identity.Actor{}, fmt.Errorf("%w: token has no subject", apperr.ErrUnauthorized)
	}
	role, err := identity.ParseRole(claims.Role)
	if err != nil {
		return identity.Actor{}, fmt.Errorf("%w: token role %q", apperr.ErrUnauthorized, claims.Role)
	}
	return identity.Actor{ID: claims.Subject, Role: role}, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				writeError(w, r, fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized))
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, apperr.Forbidden("role %s may not access %s", actor.Role, r.URL.Path))
		})
	}
}

// actorOf is used by handlers mounted behind Authenticate.
func actorOf(r *http.Request) identity.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}
