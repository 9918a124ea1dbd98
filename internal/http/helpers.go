package http

import (
	"net/http"
	"strconv"
	"strings"

	"ledger/internal/core"
)

// parseIDParam reads the {id} path segment as a positive integer.
func parseIDParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// parseYearMonth reads the {year} and {month} path segments. Range checks
// are left to the engine.
func parseYearMonth(r *http.Request) (year, month int, err error) {
	year, err = strconv.Atoi(strings.TrimSpace(r.PathValue("year")))
	if err != nil {
		return 0, 0, core.NewValidationError("year", "must be an integer")
	}
	month, err = strconv.Atoi(strings.TrimSpace(r.PathValue("month")))
	if err != nil {
		return 0, 0, core.NewValidationError("month", "must be an integer")
	}
	return year, month, nil
}

// parsePaging returns the page and limit query parameters and whether
// either was supplied. Values are normalized by the engine.
func parsePaging(r *http.Request) (page, limit int, paged bool, err error) {
	q := r.URL.Query()
	if !q.Has("page") && !q.Has("limit") {
		return 0, 0, false, nil
	}
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return 0, 0, true, core.NewValidationError("page", "must be an integer")
		}
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, true, core.NewValidationError("limit", "must be an integer")
		}
	}
	return page, limit, true, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// userCachePrefix scopes cache keys to one user so writes can drop them all.
func userCachePrefix(userID int64) string {
	return "u:" + strconv.FormatInt(userID, 10) + ":"
}
