package api

import "net/http"

// parseWindow reads the start/limit query parameters used by the listing
// endpoints. Malformed or missing values fall back to defaults; the limit is
// clamped so a listing can never over-return.
func parseWindow(r *http.Request, defaultLimit, maxLimit int) (start, limit int) {
	start = parseNonNegativeInt(r.URL.Query().Get("start"), 0)
	limit = parseNonNegativeInt(r.URL.Query().Get("limit"), defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	return start, limit
}

func parseNonNegativeInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	var n int
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return fallback
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
