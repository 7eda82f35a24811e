package cache

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics strips diacritical marks from a string (e.g. "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// GroupKeyForName derives the group key for an item name. Numbered variants
// of one subject ("Demówki001.jpg", "demowki002.jpg") collapse to a single
// key so their embeddings share one physical blob. The key is lowercase,
// diacritics-free and filesystem-safe; names with no usable characters fall
// back to a content hash of the name.
func GroupKeyForName(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	base = removeDiacritics(base)
	base = strings.ToLower(base)

	// Strip the trailing sequence number and its separators.
	base = strings.TrimRightFunc(base, unicode.IsDigit)
	base = strings.TrimRight(base, "-_ .")

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	key := strings.Trim(b.String(), "_")
	if key == "" {
		return fmt.Sprintf("%016x", xxhash.Sum64String(name))
	}
	return key
}

// SplitURL derives the (groupKey, itemKey) pair for a remote image URL.
// The item key is the "file" query parameter when present (gallery download
// endpoints), otherwise the last path element; the group key is derived from
// the item name so one album's numbered files share a blob. URLs that cannot
// be parsed are hashed whole.
func SplitURL(rawURL string) (string, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		key := fmt.Sprintf("%016x", xxhash.Sum64String(rawURL))
		return key, rawURL
	}

	q := u.Query()
	item := q.Get("file")
	if item == "" {
		item = path.Base(u.Path)
	}
	if item == "" || item == "/" || item == "." {
		item = rawURL
	}

	// Distinguish same-named files served from different albums: the group
	// key carries a short hash of the URL with the file parameter removed.
	q.Del("file")
	u.RawQuery = q.Encode()
	album := xxhash.Sum64String(u.String())
	return fmt.Sprintf("%s-%04x", GroupKeyForName(item), album&0xffff), item
}
