package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/peterbourgon/diskv/v3"
	"github.com/sflowg/dingtalk/runtime"
)

// Diskv persists credentials as JSON files so refreshed tokens survive restarts.
type Diskv struct {
	diskv *diskv.Diskv
}

func flatTransform(s string) []string { return []string{} }

// NewDiskv stores records under basePath.
func NewDiskv(basePath string) *Diskv {
	return &Diskv{diskv: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    flatTransform,
		CacheSizeMax: 1024 * 1024,
		FilePerm:     0600,
		PathPerm:     0700,
	})}
}

func (d *Diskv) Get(_ context.Context, name string) (runtime.Credentials, error) {
	key := keyFor(name)
	if !d.diskv.Has(key) {
		return nil, runtime.ErrCredentialsNotFound
	}
	data, err := d.diskv.Read(key)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	var creds runtime.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decoding credentials: %w", err)
	}
	return creds, nil
}

func (d *Diskv) Set(_ context.Context, name string, creds runtime.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := d.diskv.Write(keyFor(name), data); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func keyFor(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name) + ".json"
}
