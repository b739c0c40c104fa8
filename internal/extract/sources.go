package extract

import (
	"net/url"
	"strings"

	"github.com/playpi/playpi/api/schemas"
)

// normalizeSourceURL rewrites a citation href for presentation: relative
// links become absolute against the chat origin, and photo-viewer route
// artifacts (fragment and query leftovers from the host's image lightbox)
// are stripped so the same article never appears under two spellings.
func normalizeSourceURL(raw, origin string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !u.IsAbs() {
		base, berr := url.Parse(origin)
		if berr != nil || base.Host == "" {
			return raw
		}
		u = base.ResolveReference(u)
	}
	if strings.HasPrefix(strings.ToLower(u.Fragment), "photo") {
		u.Fragment = ""
	}
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if strings.Contains(strings.ToLower(key), "photo") || key == "imgrc" {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}
	if seg := strings.LastIndex(u.Path, "/photo/"); seg > 0 {
		u.Path = u.Path[:seg]
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// dedupeSources drops repeated citations by normalized URL, keeping the
// first-seen title and snippet for each.
func dedupeSources(in []schemas.Source) []schemas.Source {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]schemas.Source, 0, len(in))
	for _, src := range in {
		key := src.URL
		if key == "" {
			key = "title:" + src.Title
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, src)
	}
	return out
}
