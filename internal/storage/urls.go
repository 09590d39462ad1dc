package storage

import (
	"fmt"
	"strings"

	"vidnest/accounts/internal/config"
)

type urlBuilder struct {
	base string
}

// newURLBuilder prefers PublicBaseURL (a CDN in front of the bucket) and
// falls back to path-style <endpoint>/<bucket>.
func newURLBuilder(cfg config.StorageConfig) urlBuilder {
	if cfg.PublicBaseURL != "" {
		return urlBuilder{base: strings.TrimSuffix(cfg.PublicBaseURL, "/")}
	}

	base := strings.TrimSuffix(cfg.Endpoint, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		if cfg.UseSSL {
			base = "https://" + base
		} else {
			base = "http://" + base
		}
	}
	return urlBuilder{base: fmt.Sprintf("%s/%s", base, cfg.Bucket)}
}

func (b urlBuilder) publicURL(key string) string {
	return b.base + "/" + strings.TrimPrefix(key, "/")
}

// keyFromURL reverses publicURL. URLs served from elsewhere are not ours to
// delete and report false.
func (b urlBuilder) keyFromURL(rawURL string) (string, bool) {
	key, ok := strings.CutPrefix(rawURL, b.base+"/")
	if !ok || key == "" {
		return "", false
	}
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}
