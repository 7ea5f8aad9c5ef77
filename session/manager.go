package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	oautherrors "github.com/lukaszraczylo/mockoauth2/internal/errors"
	"github.com/lukaszraczylo/mockoauth2/internal/logger"
)

type ctxKey struct{}

const sessionIDValue = "sid"

// Manager issues a signed cookie carrying an opaque session id and exposes
// that id to handlers through the request context.
type Manager struct {
	store      sessions.Store
	logger     logger.Logger
	newID      func() string
	cookieName string
}

// ManagerConfig configures the session cookie.
type ManagerConfig struct {
	Secret     string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// NewManager creates a Manager backed by a gorilla cookie store.
func NewManager(cfg ManagerConfig, log logger.Logger) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret must not be empty")
	}
	if cfg.CookieName == "" {
		return nil, fmt.Errorf("session cookie name must not be empty")
	}
	if log == nil {
		log = logger.GetNoOpLogger()
	}

	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	// sets the cookie Max-Age and the signed timestamp limit together
	store.MaxAge(int(cfg.MaxAge.Seconds()))

	return &Manager{
		store:      store,
		logger:     log,
		newID:      uuid.NewString,
		cookieName: cfg.CookieName,
	}, nil
}

// Middleware makes sure every request carries a session id, issuing the
// cookie when the browser does not have a valid one yet.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.store.Get(r, m.cookieName)
		if err != nil {
			// tampered or stale cookie; gorilla still hands back a fresh session
			m.logger.Debugf("Discarding unreadable session cookie: %v", err)
		}

		id, _ := sess.Values[sessionIDValue].(string)
		if id == "" {
			id = m.newID()
			sess.Values[sessionIDValue] = id
			if err := sess.Save(r, w); err != nil {
				m.logger.Errorf("Failed to save session cookie: %v", err)
				oautherrors.Write(w, oautherrors.WrapStoreError(err, "session save"))
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

// WithID returns a context carrying the session id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext extracts the session id stored by the middleware.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
