package server

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lukaszraczylo/mockoauth2/config"
)

// StartHereURL is the authorize URL that starts a login with the first
// permitted redirect URL and, when scopes are configured, the first scope.
func StartHereURL(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString("http://localhost:")
	b.WriteString(strconv.Itoa(cfg.Port))
	b.WriteString(cfg.AuthPath)
	b.WriteString("?redirect_uri=")
	b.WriteString(firstRedirect(cfg))
	b.WriteString("&client_id=")
	b.WriteString(cfg.ClientID)
	b.WriteString("&response_type=code")
	if len(cfg.Scopes) > 0 {
		b.WriteString("&scope=")
		b.WriteString(cfg.Scopes[0])
	}
	return b.String()
}

func firstRedirect(cfg *config.Config) string {
	if len(cfg.PermittedRedirectURLs) == 0 {
		return ""
	}
	return cfg.PermittedRedirectURLs[0]
}

// WriteBanner prints the startup summary.
func WriteBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Running on http://localhost:%d\n", cfg.Port)
	fmt.Fprintf(w, "\texpected Client ID: %s\n", cfg.ClientID)
	fmt.Fprintf(w, "\texpected Client Secret: %s\n", cfg.ClientSecret)
	fmt.Fprintf(w, "\tauthorization endpoint: %s\n", cfg.AuthPath)
	fmt.Fprintf(w, "\taccess token endpoint: %s\n", cfg.TokenPath)
	fmt.Fprintf(w, "\tuserinfo endpoint: %s\n", cfg.UserinfoPath)
	fmt.Fprintf(w, "\ttokeninfo endpoint: %s\n", cfg.TokeninfoPath)
	fmt.Fprintf(w, "\tredirect URLs: %s\n", strings.Join(cfg.PermittedRedirectURLs, ", "))
	fmt.Fprintf(w, "\tscopes: %s\n", strings.Join(cfg.Scopes, ","))
	fmt.Fprintf(w, "\tstore: %s\n", cfg.Store.Backend)
	fmt.Fprintf(w, "Start here: %s\n", StartHereURL(cfg))
	fmt.Fprintf(w, "Ensure something is running at: %s\n", firstRedirect(cfg))
}
