package datasource

import (
	"strings"

	"dqcheck/internal/datasource/file"
	"dqcheck/internal/datasource/httpds"
)

// Resolve picks a Source for location: http(s) URLs go through client,
// everything else is a local path. A nil client gets a default one.
func Resolve(location string, client *httpds.Client) Source {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if client == nil {
			client = httpds.NewClient(httpds.Config{MaxRetries: 2})
		}
		return httpds.NewSource(client, location)
	}
	return file.NewLocal(location)
}
