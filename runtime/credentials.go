package runtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

// ErrCredentialsNotFound is returned by a CredentialStore that holds no record for a name.
var ErrCredentialsNotFound = errors.New("credentials not found")

// Credentials is a decrypted credential record.
type Credentials map[string]any

// String returns the value at key as a string, or "" when missing.
func (c Credentials) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	maps.Copy(out, c)
	return out
}

// Merge returns a copy of c overlaid with other.
func (c Credentials) Merge(other Credentials) Credentials {
	out := c.Clone()
	maps.Copy(out, other)
	return out
}

// CredentialProperty describes one field of a credential type.
type CredentialProperty struct {
	DisplayName string       `json:"displayName"`
	Name        string       `json:"name"`
	Type        PropertyType `json:"type"`
	Default     any          `json:"default"`
	Required    bool         `json:"required,omitempty"`
	Password    bool         `json:"password,omitempty"`
	Expirable   bool         `json:"expirable,omitempty"`
	Description string       `json:"description,omitempty"`
}

// CredentialType knows how to authenticate outgoing requests.
type CredentialType interface {
	Name() string
	DisplayName() string
	Properties() []CredentialProperty
	// Authenticate applies the credentials to req in place.
	Authenticate(creds Credentials, req *HTTPRequest) error
}

// PreAuthenticator is a credential type that derives short-lived fields
// (for example an access token) from long-lived ones.
type PreAuthenticator interface {
	CredentialType
	// ExpirableFields names the derived fields; a blank one triggers PreAuthenticate.
	ExpirableFields() []string
	PreAuthenticate(ctx context.Context, http HTTPDoer, creds Credentials) (Credentials, error)
}

// CredentialTester builds the request used to check credentials from the host UI.
type CredentialTester interface {
	TestRequest() *HTTPRequest
}

func needsPreAuthentication(pa PreAuthenticator, creds Credentials) bool {
	for _, field := range pa.ExpirableFields() {
		if creds.String(field) == "" {
			return true
		}
	}
	return false
}
