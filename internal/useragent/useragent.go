// Package useragent extracts the fields the forwarder reports from a raw User-Agent header.
package useragent

import (
	"strings"

	ua "github.com/mileusna/useragent"
)

// Result holds the parsed fields.
type Result struct {
	// UA is the user-agent string as received.
	UA     string
	OSName string
}

// Parse parses raw. An empty string yields an empty Result.
func Parse(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{UA: raw}
	}
	return Result{
		UA:     raw,
		OSName: ua.Parse(raw).OS,
	}
}
