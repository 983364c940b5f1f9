package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

// File is a content-addressed on-disk store: one JSON file per
// fingerprint under dir, with the expiry embedded in the payload.
type File struct {
	dir string
}

// DefaultDir places the cache under the user's home directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".view0x", "cache"), nil
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &model.CacheUnavailableError{Op: "init", Err: err}
	}
	return &File{dir: dir}, nil
}

type filePayload struct {
	ExpiresAt time.Time           `json:"expiresAt"`
	Result    *model.MergedResult `json:"result"`
}

func (f *File) Get(ctx context.Context, fingerprint string) (*model.MergedResult, bool, error) {
	path := filepath.Join(f.dir, fingerprint+".json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &model.CacheUnavailableError{Op: "get", Err: err}
	}
	var p filePayload
	if err := json.Unmarshal(b, &p); err != nil {
		// corrupt entry: treat as miss and drop it
		_ = os.Remove(path)
		return nil, false, nil
	}
	if !p.ExpiresAt.IsZero() && time.Now().After(p.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return p.Result, true, nil
}

func (f *File) Set(ctx context.Context, fingerprint string, result *model.MergedResult, ttl time.Duration) error {
	p := filePayload{Result: result}
	if ttl > 0 {
		p.ExpiresAt = time.Now().Add(ttl)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return &model.CacheUnavailableError{Op: "set", Err: err}
	}
	path := filepath.Join(f.dir, fingerprint+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return &model.CacheUnavailableError{Op: "set", Err: err}
	}
	return nil
}
