package pagination

import (
	"fmt"
	"net/url"
)

// BuildPageLink renders a navigation link for the given page token. An empty
// token yields an empty link, which the list envelope serialises as "".
func BuildPageLink(host, path, token string, top int) string {
	if token == "" {
		return ""
	}
	return fmt.Sprintf("https://%s%s?$top=%d&$token=%s", host, path, top, url.QueryEscape(token))
}
