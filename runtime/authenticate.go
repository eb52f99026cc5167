package runtime

import (
	"context"
	"fmt"
)

type authOptions struct {
	credentials Credentials
}

// AuthOption customizes HTTPRequestWithAuthentication.
type AuthOption func(*authOptions)

// WithCredentialsOverride authenticates with creds instead of the stored record.
// Blank expirable fields in creds force a fresh pre-authentication.
func WithCredentialsOverride(creds Credentials) AuthOption {
	return func(o *authOptions) { o.credentials = creds }
}

// HTTPRequestWithAuthentication resolves credentials of type credentialType,
// runs pre-authentication when an expirable field is blank, applies the
// credential to req and performs it. The decoded body is returned.
func (e *Execution) HTTPRequestWithAuthentication(ctx context.Context, credentialType string, req *HTTPRequest, opts ...AuthOption) (any, error) {
	if e.Container == nil || e.Container.HTTP == nil {
		return nil, fmt.Errorf("no HTTP client available")
	}

	var o authOptions
	for _, opt := range opts {
		opt(&o)
	}

	ct, ok := e.Container.CredentialType(credentialType)
	if !ok {
		return nil, fmt.Errorf("unknown credential type %q", credentialType)
	}

	creds := o.credentials
	if creds == nil {
		stored, err := e.GetCredentials(ctx, credentialType)
		if err != nil {
			return nil, err
		}
		creds = stored
	}
	creds = creds.Clone()

	if pa, ok := ct.(PreAuthenticator); ok && needsPreAuthentication(pa, creds) {
		refreshed, err := pa.PreAuthenticate(ctx, e.Container.HTTP, creds.Clone())
		if err != nil {
			return nil, err
		}
		creds = creds.Merge(refreshed)
		if err := e.Container.Credentials.Set(ctx, credentialType, creds); err != nil {
			e.logger.WarnContext(ctx, "Failed to persist refreshed credentials",
				"credential_type", credentialType,
				"error", err)
		} else {
			e.logger.DebugContext(ctx, "Credentials refreshed", "credential_type", credentialType)
		}
	}

	authReq := req.Clone()
	if err := ct.Authenticate(creds, authReq); err != nil {
		return nil, fmt.Errorf("failed to authenticate request: %w", err)
	}

	resp, err := e.Container.HTTP.Do(ctx, authReq)
	if err != nil {
		return nil, err
	}
	return resp.Decode(), nil
}
