package token

// BearerType is the token_type of every issued record.
const BearerType = "Bearer"

// Token prefixes and random-part lengths.
const (
	CodePrefix         = "C-"
	AccessTokenPrefix  = "ACCT-"
	RefreshTokenPrefix = "REFT-"
	IDTokenPrefix      = "IDT-"

	CodeLength  = 3
	TokenLength = 6
)

// Record is the token response body returned by the token endpoint.
type Record struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	State        string `json:"state,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
}

// Profile is the person data served by userinfo and tokeninfo.
type Profile struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Scope         string `json:"scope,omitempty"`
}

// IssueRequest carries the login-as inputs used to mint a code.
type IssueRequest struct {
	Name      string
	Email     string
	ExpiresIn int
	State     string
	// Scope overrides the scope resolved from Email when non-empty.
	Scope string
}

// AuthorizationKey is the userinfo lookup key for an access token.
func AuthorizationKey(accessToken string) string {
	return BearerType + " " + accessToken
}
