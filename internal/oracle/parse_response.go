package oracle

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shepherdjerred/jsdeminify/internal/cache"
)

// fencedBlock extracts the content of a Markdown fenced code block,
// optionally tagged ```json, tolerating leading/trailing prose around it.
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// rawEntry mirrors the oracle's per-function response shape before
// validation. Fields are left as json.RawMessage so a malformed
// individual field can be detected and the entry discarded without
// failing the whole batch.
type rawEntry struct {
	FunctionName json.RawMessage `json:"functionName"`
	Description  json.RawMessage `json:"description"`
	Renames      json.RawMessage `json:"renames"`
}

// ParseResponse tolerantly parses one oracle response body — either a
// bare JSON object or one wrapped in a fenced code block — into validated
// RenameMapping entries keyed by function ID. Malformed top-level JSON is
// an error (OracleResponseMalformed, fatal for this batch); malformed
// individual entries are discarded with a logged warning and simply
// absent from the result.
func ParseResponse(raw string) (map[string]cache.RenameMapping, error) {
	payload := extractJSONObject(raw)

	var entries map[string]rawEntry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, ErrMalformedResponse
	}

	result := make(map[string]cache.RenameMapping, len(entries))
	for id, entry := range entries {
		mapping, ok := validateEntry(id, entry)
		if !ok {
			continue
		}
		result[id] = mapping
	}
	return result, nil
}

// extractJSONObject returns the bare JSON object text from raw, unwrapping
// a fenced code block if present. If neither a fence nor a parseable
// object boundary is found, raw is returned as-is and left to
// json.Unmarshal to reject.
func extractJSONObject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// validateEntry checks that renames (if present) is a string→string
// object and functionName/description (if present) are strings. Any
// violation discards the whole entry rather than attempting partial
// recovery.
func validateEntry(id string, entry rawEntry) (cache.RenameMapping, bool) {
	mapping := cache.RenameMapping{Renames: map[string]string{}}

	for field, target := range map[string]*string{"functionName": &mapping.FunctionName, "description": &mapping.Description} {
		raw := entry.FunctionName
		if field == "description" {
			raw = entry.Description
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, target); err != nil {
				slog.Warn("oracle: discarding entry with non-string field",
					slog.String("function_id", id), slog.String("field", field), slog.String("error", err.Error()))
				return cache.RenameMapping{}, false
			}
		}
	}

	if len(entry.Renames) > 0 {
		var renames map[string]string
		if err := json.Unmarshal(entry.Renames, &renames); err != nil {
			slog.Warn("oracle: discarding malformed rename entry",
				slog.String("function_id", id),
				slog.String("error", err.Error()),
			)
			return cache.RenameMapping{}, false
		}
		mapping.Renames = renames
	}

	return mapping, true
}
