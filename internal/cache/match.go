package cache

import (
	"path"
	"strings"
)

// MatchKey reports whether a resource key matches a slash-separated
// pattern. The key's query string and trailing slash are ignored, so
// "starships/?page=1" is matched as "starships".
//
//	"**"       matches zero or more segments
//	"people/*" matches one segment below people
//	"people/1*" uses path.Match syntax within a segment
func MatchKey(pattern, key string) bool {
	if i := strings.IndexByte(key, '?'); i >= 0 {
		key = key[:i]
	}
	key = strings.Trim(key, "/")
	pattern = strings.Trim(pattern, "/")
	return matchSegments(strings.Split(pattern, "/"), strings.Split(key, "/"))
}

func matchSegments(pat, seg []string) bool {
	for len(pat) > 0 {
		p := pat[0]
		pat = pat[1:]

		if p == "**" {
			if len(pat) == 0 {
				return true
			}
			for i := 0; i <= len(seg); i++ {
				if matchSegments(pat, seg[i:]) {
					return true
				}
			}
			return false
		}

		if len(seg) == 0 {
			return false
		}
		if ok, err := path.Match(p, seg[0]); err != nil || !ok {
			return false
		}
		seg = seg[1:]
	}
	return len(seg) == 0
}
