// Package handlers implements the HTTP endpoints of the mock identity provider:
// authorize, login-as, token exchange, userinfo and tokeninfo.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	oautherrors "github.com/lukaszraczylo/mockoauth2/internal/errors"
	"github.com/lukaszraczylo/mockoauth2/internal/logger"
	"github.com/lukaszraczylo/mockoauth2/internal/token"
	"github.com/lukaszraczylo/mockoauth2/internal/ui"
	"github.com/lukaszraczylo/mockoauth2/internal/validator"
	"github.com/lukaszraczylo/mockoauth2/session"
)

// DefaultExpiresIn is used when login-as receives no usable expiresIn.
const DefaultExpiresIn = 3600

// TokenStore is the subset of token.Store used by the handlers.
type TokenStore interface {
	IssueCode(ctx context.Context, req token.IssueRequest) (string, error)
	Exchange(ctx context.Context, code string) (*token.Record, error)
	ProfileByAuthorization(ctx context.Context, header string) (*token.Profile, error)
	ProfileByIDToken(ctx context.Context, idToken string) (*token.Profile, error)
	Ping(ctx context.Context) error
}

// SessionStore keeps the authorization state between authorize and login-as.
type SessionStore interface {
	Get(ctx context.Context, id string) (*session.Authorization, error)
	Put(ctx context.Context, id string, auth session.Authorization) error
}

// Paths are the mount points of every endpoint.
type Paths struct {
	Authorize string
	LoginAs   string
	Token     string
	Userinfo  string
	Tokeninfo string
	Health    string
}

// DefaultPaths returns the Google-compatible endpoint layout.
func DefaultPaths() Paths {
	return Paths{
		Authorize: "/o/oauth2/v2/auth",
		LoginAs:   "/login-as",
		Token:     "/oauth2/v4/token",
		Userinfo:  "/oauth2/v3/userinfo",
		Tokeninfo: "/oauth2/v3/tokeninfo",
		Health:    "/healthz",
	}
}

func (p Paths) withDefaults() Paths {
	def := DefaultPaths()
	for _, f := range []struct{ v, d *string }{
		{&p.Authorize, &def.Authorize},
		{&p.LoginAs, &def.LoginAs},
		{&p.Token, &def.Token},
		{&p.Userinfo, &def.Userinfo},
		{&p.Tokeninfo, &def.Tokeninfo},
		{&p.Health, &def.Health},
	} {
		if *f.v == "" {
			*f.v = *f.d
		}
	}
	return p
}

// check rejects paths the mux cannot register as literal routes.
func (p Paths) check() error {
	for _, v := range []string{p.Authorize, p.LoginAs, p.Token, p.Userinfo, p.Tokeninfo, p.Health} {
		if !strings.HasPrefix(v, "/") || strings.ContainsAny(v, " \t\r\n{}") {
			return fmt.Errorf("handlers: invalid endpoint path %q", v)
		}
	}
	return nil
}

// Options wires a Handler.
type Options struct {
	Paths            Paths
	ClientID         string
	ClientSecret     string
	DefaultExpiresIn int
	Validator        *validator.Validator
	Tokens           TokenStore
	Sessions         SessionStore
	Renderer         ui.Renderer
	Logger           logger.Logger
}

// Handler serves the OAuth2 endpoints.
type Handler struct {
	paths            Paths
	clientID         string
	clientSecret     string
	defaultExpiresIn int
	validator        *validator.Validator
	tokens           TokenStore
	sessions         SessionStore
	renderer         ui.Renderer
	logger           logger.Logger
}

// New creates a Handler. Validator, Tokens, Sessions and Renderer are required.
func New(opts Options) (*Handler, error) {
	if opts.Validator == nil || opts.Tokens == nil || opts.Sessions == nil || opts.Renderer == nil {
		return nil, errors.New("handlers: validator, token store, session store and renderer are required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetNoOpLogger()
	}
	if opts.DefaultExpiresIn <= 0 {
		opts.DefaultExpiresIn = DefaultExpiresIn
	}
	opts.Paths = opts.Paths.withDefaults()
	if err := opts.Paths.check(); err != nil {
		return nil, err
	}

	return &Handler{
		paths:            opts.Paths,
		clientID:         opts.ClientID,
		clientSecret:     opts.ClientSecret,
		defaultExpiresIn: opts.DefaultExpiresIn,
		validator:        opts.Validator,
		tokens:           opts.Tokens,
		sessions:         opts.Sessions,
		renderer:         opts.Renderer,
		logger:           opts.Logger,
	}, nil
}

// Routes registers every endpoint on mux. Requests using another method on a
// registered path are answered with 405 by the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+h.paths.Authorize, h.Authorize)
	mux.HandleFunc("GET "+h.paths.LoginAs, h.LoginAs)
	mux.HandleFunc("POST "+h.paths.Token, h.Token)
	mux.HandleFunc("GET "+h.paths.Userinfo, h.Userinfo)
	mux.HandleFunc("GET "+h.paths.Tokeninfo, h.Tokeninfo)
	mux.HandleFunc("GET "+h.paths.Health, h.Health)
}

// Authorize validates the authorization request, records redirect_uri and
// state in the caller's session and renders the confirmation page.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := h.validator.ValidateAuthRequest(query); err != nil {
		h.reject(h.logger, w, "authorization request", err)
		return
	}

	sid, ok := session.IDFromContext(r.Context())
	if !ok {
		h.reject(h.logger, w, "authorization request", oautherrors.WrapStoreError(errors.New("no session id in request context"), "session lookup"))
		return
	}
	log := h.logger.WithField("session", sid)

	auth := session.Authorization{
		RedirectURI: query.Get("redirect_uri"),
		ClientState: query.Get("state"),
	}
	if err := h.sessions.Put(r.Context(), sid, auth); err != nil {
		h.reject(log, w, "authorization request", oautherrors.WrapStoreError(err, "session write"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := h.renderer.Render(w, query); err != nil {
		log.Errorf("Failed to render confirmation page: %v", err)
	}
}

// LoginAs simulates the user signing in: it issues a code for the submitted
// identity and redirects back to the client with code and state.
func (h *Handler) LoginAs(w http.ResponseWriter, r *http.Request) {
	auth, err := h.authorization(r)
	if err != nil {
		h.reject(h.logger, w, "login", err)
		return
	}
	sid, _ := session.IDFromContext(r.Context())
	log := h.logger.WithFields(map[string]interface{}{"session": sid, "redirect_uri": auth.RedirectURI})

	query := r.URL.Query()
	code, err := h.tokens.IssueCode(r.Context(), token.IssueRequest{
		Name:      query.Get("name"),
		Email:     query.Get("email"),
		ExpiresIn: h.expiresIn(query.Get("expiresIn")),
		State:     auth.ClientState,
		Scope:     query.Get("scope"),
	})
	if err != nil {
		h.reject(log, w, "login", oautherrors.WrapStoreError(err, "code issue"))
		return
	}

	location := redirectLocation(auth.RedirectURI, code, auth.ClientState)
	log.Infof("Redirecting to %s", location)
	log.Infof("Retrieve access token by POST %s with code %s, client_id %s, client_secret %s, grant_type authorization_code and header \"Content-Type: application/x-www-form-urlencoded\"",
		h.paths.Token, code, h.clientID, h.clientSecret)

	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusTemporaryRedirect)
}

// authorization loads the session record written by Authorize.
func (h *Handler) authorization(r *http.Request) (*session.Authorization, error) {
	missing := oautherrors.NewBadRequestError(oautherrors.ErrCodeSessionMissing,
		fmt.Sprintf("no authorization session, start at %s", h.paths.Authorize))

	sid, ok := session.IDFromContext(r.Context())
	if !ok {
		return nil, missing
	}
	auth, err := h.sessions.Get(r.Context(), sid)
	if errors.Is(err, session.ErrNotFound) {
		return nil, missing
	}
	if err != nil {
		return nil, oautherrors.WrapStoreError(err, "session read")
	}
	return auth, nil
}

func (h *Handler) expiresIn(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return h.defaultExpiresIn
	}
	return n
}

func redirectLocation(redirectURI, code, state string) string {
	params := url.Values{}
	params.Set("code", code)
	if state != "" {
		params.Set("state", state)
	}
	base, fragment, hasFragment := strings.Cut(redirectURI, "#")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	location := base + sep + params.Encode()
	if hasFragment {
		location += "#" + fragment
	}
	return location
}

// reject writes err to the client. Client errors are logged at debug level,
// anything else at error level.
func (h *Handler) reject(log logger.Logger, w http.ResponseWriter, what string, err error) {
	status := oautherrors.GetHTTPStatus(err)
	if pErr, ok := oautherrors.AsProtocolError(err); ok && pErr.IsClientError() {
		log.Debugf("Rejected %s with %d: %v", what, status, err)
	} else {
		log.Errorf("Failed %s with %d: %v", what, status, err)
	}
	oautherrors.Write(w, err)
}

// Token exchanges an authorization code for its token record. An unknown code
// that passed validation yields 200 with an empty body.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oautherrors.Write(w, oautherrors.NewBadRequestError(oautherrors.ErrCodeMissingParameter,
			fmt.Sprintf("malformed form body: %v", err)))
		return
	}

	var sessionRedirect string
	if sid, ok := session.IDFromContext(r.Context()); ok {
		auth, err := h.sessions.Get(r.Context(), sid)
		switch {
		case err == nil:
			sessionRedirect = auth.RedirectURI
		case !errors.Is(err, session.ErrNotFound):
			h.reject(h.logger, w, "token request", oautherrors.WrapStoreError(err, "session read"))
			return
		}
	}

	if err := h.validator.ValidateAccessTokenRequest(r.Form, r.Header, sessionRedirect); err != nil {
		h.reject(h.logger, w, "token request", err)
		return
	}

	record, err := h.tokens.Exchange(r.Context(), r.Form.Get("code"))
	if errors.Is(err, token.ErrNotFound) {
		h.logger.Debugf("Unknown authorization code %q", r.Form.Get("code"))
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to exchange authorization code: %v", err)
		oautherrors.Write(w, oautherrors.WrapStoreError(err, "code lookup"))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, "access token", record)
}

// Userinfo returns the profile bound to the raw Authorization header.
func (h *Handler) Userinfo(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	profile, err := h.tokens.ProfileByAuthorization(r.Context(), header)
	if errors.Is(err, token.ErrNotFound) {
		oautherrors.Write(w, oautherrors.NewNotFoundError("token not found by Authorization header"))
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to load userinfo: %v", err)
		oautherrors.Write(w, oautherrors.WrapStoreError(err, "userinfo lookup"))
		return
	}
	h.writeJSON(w, "userinfo", profile)
}

// Tokeninfo returns the profile bound to the idToken query parameter.
func (h *Handler) Tokeninfo(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("idToken") {
		writeText(w, oautherrors.NewMissingParameterError("idToken"))
		return
	}

	idToken := query.Get("idToken")
	profile, err := h.tokens.ProfileByIDToken(r.Context(), idToken)
	if errors.Is(err, token.ErrNotFound) {
		writeText(w, oautherrors.NewNotFoundError(fmt.Sprintf("token not found by idToken %s", idToken)))
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to load tokeninfo: %v", err)
		oautherrors.Write(w, oautherrors.WrapStoreError(err, "tokeninfo lookup"))
		return
	}
	h.writeJSON(w, "tokeninfo", profile)
}

// Health reports whether the token backend is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Ping(r.Context()); err != nil {
		w.Header().Set(oautherrors.DebugHeader, err.Error())
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (h *Handler) writeJSON(w http.ResponseWriter, what string, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Errorf("Failed to encode %s response: %v", what, err)
		oautherrors.Write(w, err)
		return
	}
	h.logger.Debugf("%s response: %s", what, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeText renders a protocol error with its message as the plain-text body.
func writeText(w http.ResponseWriter, pErr *oautherrors.ProtocolError) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(oautherrors.DebugHeader, pErr.Message)
	w.WriteHeader(pErr.HTTPStatus)
	_, _ = io.WriteString(w, pErr.Message)
}
