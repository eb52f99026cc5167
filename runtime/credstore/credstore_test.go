package credstore

import (
	"context"
	"errors"
	"testing"

	"github.com/sflowg/dingtalk/runtime"
)

func TestStores_RoundTrip(t *testing.T) {
	stores := map[string]runtime.CredentialStore{
		"memory": NewMemory(),
		"diskv":  NewDiskv(t.TempDir()),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.Get(ctx, "dingtalkApi"); !errors.Is(err, runtime.ErrCredentialsNotFound) {
				t.Fatalf("Expected ErrCredentialsNotFound, got %v", err)
			}

			in := runtime.Credentials{"clientId": "key", "accessToken": "tok"}
			if err := store.Set(ctx, "dingtalkApi", in); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			out, err := store.Get(ctx, "dingtalkApi")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if out.String("clientId") != "key" || out.String("accessToken") != "tok" {
				t.Errorf("Expected stored credentials back, got %v", out)
			}

			out["accessToken"] = "mutated"
			again, _ := store.Get(ctx, "dingtalkApi")
			if again.String("accessToken") != "tok" {
				t.Errorf("Expected store to be isolated from returned maps, got %q", again.String("accessToken"))
			}
		})
	}
}

func TestDiskv_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	if err := NewDiskv(dir).Set(ctx, "dingtalkApi", runtime.Credentials{"accessToken": "cached"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	creds, err := NewDiskv(dir).Get(ctx, "dingtalkApi")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if creds.String("accessToken") != "cached" {
		t.Errorf("Expected accessToken='cached', got '%s'", creds.String("accessToken"))
	}
}

func TestSeed_KeepsCachedToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_ = store.Set(ctx, "dingtalkApi", runtime.Credentials{"clientId": "old", "accessToken": "cached"})

	err := Seed(ctx, store, "dingtalkApi", runtime.Credentials{"clientId": "new", "accessToken": ""})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	creds, _ := store.Get(ctx, "dingtalkApi")
	if creds.String("clientId") != "new" {
		t.Errorf("Expected clientId='new', got '%s'", creds.String("clientId"))
	}
	if creds.String("accessToken") != "cached" {
		t.Errorf("Expected cached accessToken to survive, got '%s'", creds.String("accessToken"))
	}
}

func TestSeed_EmptyStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := Seed(ctx, store, "dingtalkRobotApi", runtime.Credentials{"accessToken": "robot"}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	creds, err := store.Get(ctx, "dingtalkRobotApi")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if creds.String("accessToken") != "robot" {
		t.Errorf("Expected accessToken='robot', got '%s'", creds.String("accessToken"))
	}
}
