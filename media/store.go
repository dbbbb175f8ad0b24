// Package media abstracts where uploaded files end up. The rest of the
// service only sees a stored name and a public URL and trusts both verbatim.
package media

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/snapfeed/snapfeed/config"
)

// StoredMedia is what a backend reports after accepting a file.
type StoredMedia struct {
	URL  string
	Name string
}

// Store is the narrow interface every media backend implements.
type Store interface {
	// Store uploads the file at localPath under a collision-resistant name
	// derived from fileName and returns its public URL and stored name.
	Store(ctx context.Context, localPath, fileName, contentType string) (*StoredMedia, error)
}

// NewStore builds the backend selected by configuration.
func NewStore(ctx context.Context, cfg config.AppConfig) (Store, error) {
	switch cfg.MediaBackend {
	case "", "local":
		return NewLocalStore(cfg.MediaLocalDir, cfg.MediaBaseURL)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}

// uniqueName prefixes the sanitized original file name with a fresh UUID so
// two uploads of the same file never collide.
func uniqueName(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.ReplaceAll(base, " ", "_")
	if base == "." || base == "" || base == string(filepath.Separator) {
		base = "file"
	}
	return uuid.NewString() + "_" + base
}
