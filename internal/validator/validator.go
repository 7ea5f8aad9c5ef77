// Package validator checks incoming OAuth2 requests against the single
// registered client. Validators never panic; failures come back as
// *errors.ProtocolError values describing the expected and actual values.
package validator

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"slices"
	"strings"

	oautherrors "github.com/lukaszraczylo/mockoauth2/internal/errors"
)

const (
	basicPrefix = "Basic "

	// ResponseTypeCode is the only supported response_type.
	ResponseTypeCode = "code"
	// GrantTypeAuthorizationCode is the only supported grant_type.
	GrantTypeAuthorizationCode = "authorization_code"
)

// Settings describe the registered client.
type Settings struct {
	ClientID              string
	ClientSecret          string
	PermittedRedirectURIs []string
}

// Validator holds immutable client settings and is safe for concurrent use.
type Validator struct {
	clientID     string
	clientSecret string
	redirects    []string
}

// New creates a Validator for settings.
func New(settings Settings) *Validator {
	return &Validator{
		clientID:     settings.ClientID,
		clientSecret: settings.ClientSecret,
		redirects:    slices.Clone(settings.PermittedRedirectURIs),
	}
}

// ValidateClientID fails with 400 when actual differs from the registered client id.
func (v *Validator) ValidateClientID(actual string) error {
	if actual == v.clientID {
		return nil
	}
	return oautherrors.NewIdentityError(oautherrors.ErrCodeClientIDMismatch,
		oautherrors.ExpectedActual("client_id", v.clientID, actual))
}

// RedirectPermitted reports whether uri exactly matches an allow-listed redirect URI.
func (v *Validator) RedirectPermitted(uri string) bool {
	return slices.Contains(v.redirects, uri)
}

// ValidateAuthRequest checks an authorize query and stops at the first failure:
// client_id, then response_type, then redirect_uri when one is supplied.
func (v *Validator) ValidateAuthRequest(query url.Values) error {
	if err := v.ValidateClientID(query.Get("client_id")); err != nil {
		return err
	}

	if responseType := query.Get("response_type"); responseType != ResponseTypeCode {
		return oautherrors.NewAuthenticationError(oautherrors.ErrCodeUnsupportedResponseType,
			oautherrors.ExpectedActual("response_type", ResponseTypeCode, responseType))
	}

	if redirectURI := query.Get("redirect_uri"); redirectURI != "" && !v.RedirectPermitted(redirectURI) {
		return oautherrors.NewAuthenticationError(oautherrors.ErrCodeRedirectNotPermitted,
			oautherrors.ExpectedActual("redirect_uri", oautherrors.OneOf(v.redirects), redirectURI))
	}
	return nil
}

// ParseBasicCredentials decodes a "Basic base64(id:secret)" header value.
// The decoded payload must be non-empty and contain exactly one colon.
func ParseBasicCredentials(header string) (id, secret string, ok bool) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, basicPrefix) {
		return "", "", false
	}

	payload := strings.TrimSpace(header[len(basicPrefix):])
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return "", "", false
		}
	}
	if len(decoded) == 0 {
		return "", "", false
	}

	segments := strings.Split(string(decoded), ":")
	if len(segments) != 2 {
		return "", "", false
	}
	return segments[0], segments[1], true
}

// ValidateAuthorizationHeader reports whether header carries the registered
// client's Basic credentials.
func (v *Validator) ValidateAuthorizationHeader(header string) bool {
	id, secret, ok := ParseBasicCredentials(header)
	return ok && id == v.clientID && secret == v.clientSecret
}

// ExpectedAuthorizationHeader returns the Basic header a client should send.
func (v *Validator) ExpectedAuthorizationHeader() string {
	return basicPrefix + base64.StdEncoding.EncodeToString([]byte(v.clientID+":"+v.clientSecret))
}

// ValidateAccessTokenRequest checks a token exchange. Every rule is evaluated
// and the returned 401 describes the last one violated, in this order:
// grant_type, Authorization header (only when sent), client_id, client_secret,
// redirect_uri against the one recorded by the authorize step. Client
// credentials missing from the form are taken from a valid Basic header.
func (v *Validator) ValidateAccessTokenRequest(form url.Values, header http.Header, sessionRedirectURI string) error {
	var last error

	if grantType := form.Get("grant_type"); grantType != GrantTypeAuthorizationCode {
		last = oautherrors.NewAuthenticationError(oautherrors.ErrCodeUnsupportedGrantType,
			oautherrors.ExpectedActual("grant_type", GrantTypeAuthorizationCode, grantType))
	}

	clientID := form.Get("client_id")
	clientSecret := form.Get("client_secret")

	if authorization := header.Get("Authorization"); authorization != "" {
		if v.ValidateAuthorizationHeader(authorization) {
			if clientID == "" {
				clientID = v.clientID
			}
			if clientSecret == "" {
				clientSecret = v.clientSecret
			}
		} else {
			last = oautherrors.NewAuthenticationError(oautherrors.ErrCodeInvalidAuthHeader,
				oautherrors.ExpectedActual("Authorization header", v.ExpectedAuthorizationHeader(), authorization))
		}
	}

	if err := v.ValidateClientID(clientID); err != nil {
		pErr, _ := oautherrors.AsProtocolError(err)
		last = oautherrors.NewAuthenticationError(pErr.Code, pErr.Message)
	}

	if clientSecret != v.clientSecret {
		last = oautherrors.NewIdentityError(oautherrors.ErrCodeClientSecretMismatch,
			oautherrors.ExpectedActual("client_secret", v.clientSecret, clientSecret))
	}

	if redirectURI := form.Get("redirect_uri"); redirectURI != sessionRedirectURI {
		last = oautherrors.NewAuthenticationError(oautherrors.ErrCodeRedirectMismatch,
			oautherrors.ExpectedActual("redirect_uri", sessionRedirectURI, redirectURI))
	}

	return last
}
