package helpers

import (
	"fmt"
	"net/url"
)

// AppendQueryParams appends query parameters to a URL, merging with any
// existing values instead of clobbering keys that are already present.
// A tracking parameter added to a link that already carries one produces a
// multi-value key, same as the upstream analytics expect.
func AppendQueryParams(rawURL string, params map[string]string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	query := parsed.Query()
	for key, value := range params {
		query.Add(key, value)
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
