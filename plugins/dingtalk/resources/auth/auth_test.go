package auth

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/plugins/dingtalk/operation/operationtest"
	"github.com/sflowg/dingtalk/runtime"
)

func TestTokenGet(t *testing.T) {
	tests := []struct {
		name     string
		creds    runtime.Credentials
		wantJSON map[string]any
		wantErr  string
	}{
		{
			name:  "returns stored token",
			creds: runtime.Credentials{"corpId": "ding123", "clientId": "key", "clientSecret": "secret", "accessToken": " tok "},
			wantJSON: map[string]any{
				"corpId":      "ding123",
				"clientId":    "key",
				"accessToken": "tok",
			},
		},
		{
			name:    "blank token",
			creds:   runtime.Credentials{"corpId": "ding123", "clientId": "key", "clientSecret": "secret", "accessToken": "  "},
			wantErr: "当前凭据没有 access_token",
		},
		{
			name:    "missing token",
			creds:   runtime.Credentials{"clientId": "key", "clientSecret": "secret"},
			wantErr: "当前凭据没有 access_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			env := operationtest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				operationtest.JSON(w, http.StatusOK, map[string]any{"accessToken": "fresh", "expireIn": 7200})
			}), Bundle())
			require.NoError(t, env.Store.Set(context.Background(), credentials.APIName, tt.creds))

			item, err := env.Run(t, tokenGet, map[string]any{"resource": "auth", "operation": opTokenGet})

			assert.Zero(t, calls.Load(), "token read must not touch the network")
			if tt.wantErr != "" {
				var opErr *runtime.OperationError
				require.ErrorAs(t, err, &opErr)
				assert.Equal(t, tt.wantErr, opErr.Message)
				assert.Equal(t, 0, opErr.ItemIndex)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantJSON, item.JSON)
			assert.Equal(t, &runtime.PairedItem{Item: 0}, item.PairedItem)
		})
	}
}
