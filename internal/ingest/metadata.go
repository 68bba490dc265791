package ingest

import "strings"

// metadataKeys are the header fields worth carrying into chunk metadata.
var metadataKeys = map[string]bool{
	"title":           true,
	"category":        true,
	"type":            true,
	"date_issued":     true,
	"effective_date":  true,
	"jurisdiction":    true,
	"department":      true,
	"source_url":      true,
	"status":          true,
	"notice_number":   true,
	"added_to_beacon": true,
	"tags":            true,
}

// extractMarkdownMetadata pulls "Key: value" lines from the top of a
// markdown document. Scanning stops at the first heading, so body text
// containing colons is never mistaken for metadata.
func extractMarkdownMetadata(text string) map[string]string {
	metadata := make(map[string]string)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") || strings.HasPrefix(line, "## ") {
			break
		}
		key, value, found := strings.Cut(line, ":")
		if !found || strings.HasPrefix(line, "#") {
			continue
		}
		key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
		value = strings.TrimSpace(value)
		if value != "" && metadataKeys[key] {
			metadata[key] = value
		}
	}
	return metadata
}
