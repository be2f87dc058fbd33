package http

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/mahjong-club/internal/identity"
	"github.com/mauv0809/mahjong-club/internal/player"
	"github.com/slack-go/slack"
)

// Middleware defines the standard signature for an HTTP middleware.
type Middleware func(http.Handler) http.Handler

// Chain combines multiple middlewares into a single handler.
// The middlewares are applied in the order they are passed.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// contextKey is a custom type to avoid key collisions in context.
type contextKey string

const (
	dryRunKey   contextKey = "dryRun"
	playerIDKey contextKey = "playerID"
)

const apiKeyHeader = "X-Api-Key"

// paramsMiddleware handles common query parameters like 'verbose' and 'dry_run'.
func paramsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Info("incoming request", "method", r.Method, "url", r.URL.Path)
		// Handle 'verbose' for request-scoped verbose logging.
		// Streams are left alone, they would hold the raised level open.
		if r.URL.Query().Get("verbose") == "true" && !isStreamRequest(r) {
			originalLevel := log.GetLevel()
			log.SetLevel(log.DebugLevel)
			defer log.SetLevel(originalLevel)
		}

		// Handle 'dry_run' and add it to the request context.
		isDryRun := r.URL.Query().Get("dry_run") == "true"
		ctx := context.WithValue(r.Context(), dryRunKey, isDryRun)

		// Call the next handler with the modified context.
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isStreamRequest(r *http.Request) bool {
	return r.URL.Path == "/chat/stream" || strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// isDryRunFromContext is a helper to safely retrieve the dry_run flag from the request context.
func isDryRunFromContext(r *http.Request) bool {
	dryRun, ok := r.Context().Value(dryRunKey).(bool)
	return ok && dryRun
}

func (s *Server) durationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Metrics.ObserveRequestDuration(time.Since(start).Seconds())
	})
}

// sessionMiddleware accepts a bearer session token, or the API key for reads.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			id, err := s.Verifier.Verify(token)
			if err != nil {
				log.Warn("Rejected session token", "error", err, "url", r.URL.Path)
				http.Error(w, "Invalid session token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
			return
		}

		if s.validAPIKey(r.Header.Get(apiKeyHeader)) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				log.Warn("API key used for a write", "method", r.Method, "url", r.URL.Path)
				http.Error(w, "API key access is read-only", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func (s *Server) validAPIKey(key string) bool {
	if key == "" || s.Cfg.Auth.APIKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.Cfg.Auth.APIKey)) == 1
}

// pushAuthMiddleware requires the shared push token, as a bearer token or
// the 'token' query parameter. Without a configured token every push is refused.
func (s *Server) pushAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			token = r.URL.Query().Get("token")
		}
		if token == "" || s.Cfg.PushToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.Cfg.PushToken)) != 1 {
			log.Warn("Rejected unauthenticated push", "remote", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func (s *Server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.FromContext(r.Context()); !ok {
			http.Error(w, "A signed-in session is required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requirePlayer resolves the signed-in identity to its player profile,
// creating the profile on first use.
func (s *Server) requirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.FromContext(r.Context())
		playerID, err := s.playerIDFor(r.Context(), id)
		if err != nil {
			writeError(w, err, "Failed to resolve player profile")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), playerIDKey, playerID)))
	})
}

func (s *Server) playerIDFor(ctx context.Context, id identity.Identity) (string, error) {
	p, err := s.Players.FindByUserID(ctx, id.ID)
	if err == nil {
		return p.ID, nil
	}
	if !errors.Is(err, player.ErrNotFound) {
		return "", err
	}
	return s.Players.EnsureProfile(ctx, id.ID, id.Nickname(), id.LoginID())
}

func playerIDFromContext(r *http.Request) string {
	playerID, _ := r.Context().Value(playerIDKey).(string)
	return playerID
}

// viewerID is the player reading a resource, or empty for API key reads
// and identities without a profile.
func (s *Server) viewerID(r *http.Request) string {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		return ""
	}
	p, err := s.Players.FindByUserID(r.Context(), id.ID)
	if err != nil {
		return ""
	}
	return p.ID
}

// slackVerifyMiddleware checks the Slack request signature.
func (s *Server) slackVerifyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Cfg.Slack.SigningSecret == "" {
			http.Error(w, "Slack commands are not configured", http.StatusServiceUnavailable)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		verifier, err := slack.NewSecretsVerifier(r.Header, s.Cfg.Slack.SigningSecret)
		if err != nil {
			log.Warn("Invalid Slack request headers", "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := verifier.Write(body); err != nil {
			http.Error(w, "Failed to verify request", http.StatusInternalServerError)
			return
		}
		if err := verifier.Ensure(); err != nil {
			log.Warn("Slack signature mismatch", "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}
