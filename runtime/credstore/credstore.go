// Package credstore provides runtime.CredentialStore implementations.
package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/sflowg/dingtalk/runtime"
)

// Seed writes creds under name, keeping stored values for fields creds leaves blank.
// A token cached by an earlier run survives a config file that has no token.
func Seed(ctx context.Context, store runtime.CredentialStore, name string, creds runtime.Credentials) error {
	existing, err := store.Get(ctx, name)
	if err != nil && !errors.Is(err, runtime.ErrCredentialsNotFound) {
		return fmt.Errorf("failed to read credentials %q: %w", name, err)
	}

	merged := existing.Clone()
	for k, v := range creds {
		if s, ok := v.(string); ok && s == "" {
			if _, kept := merged[k]; kept {
				continue
			}
		}
		merged[k] = v
	}
	return store.Set(ctx, name, merged)
}
