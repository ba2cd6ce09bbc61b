package domain

import "fmt"

// Provider names an external identity provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

// Providers lists every provider the schema has a linkage column for.
var Providers = []Provider{ProviderGitHub, ProviderGoogle}

// ParseProvider validates a provider name from a URL path.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderGitHub, ProviderGoogle:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// ProviderProfile is what a provider asserts about the user after a
// successful authorization code exchange.
type ProviderProfile struct {
	Provider       Provider
	ProviderUserID string
	Email          string // empty when the provider disclosed no verified email
	DisplayName    string
	Login          string // provider handle, e.g. GitHub login
	AvatarURL      string
}
