package api

import (
	"net/http"

	"github.com/revittco/galaxystats/internal/cache"
)

type cacheHandler struct {
	cache CacheInspector
}

type cacheResponse struct {
	Stats cache.Stats `json:"stats"`
	Keys  []string    `json:"keys"`
}

// stats lists cached keys, optionally narrowed by ?match=<pattern>.
func (h *cacheHandler) stats(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("match")
	resp := cacheResponse{Keys: []string{}}
	if h.cache != nil {
		resp.Stats = h.cache.Stats()
		for _, k := range h.cache.Keys() {
			if pattern == "" || cache.MatchKey(pattern, k) {
				resp.Keys = append(resp.Keys, k)
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
