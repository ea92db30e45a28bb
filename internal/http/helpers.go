package http

import (
	"strconv"
	"strings"
)

// sanitizeInput removes control characters (other than tab and newlines) and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// locationFor builds a Location header value for a created resource.
func locationFor(collection string, id int64) string {
	return "/api/" + collection + "/" + strconv.FormatInt(id, 10)
}
