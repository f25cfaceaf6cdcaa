package script

import (
	"fmt"
	"net/url"
	"strings"
)

// LoaderURL builds the javascript: URL stored in the user's bookmark.
// Invoking it on any page injects a script element pointing at the
// delivery endpoint, which re-validates and consumes the token before
// returning the fill agent.
func LoaderURL(baseURL, tokenID, projectID, linkID string) string {
	params := url.Values{}
	params.Set("token", tokenID)
	params.Set("projectId", projectID)
	params.Set("linkId", linkID)

	src := strings.TrimRight(baseURL, "/") + "/v1/bookmarklet-script?" + params.Encode()

	js := fmt.Sprintf(
		"(function(){var s=document.createElement('script');s.src=%q;document.body.appendChild(s);})();",
		src)

	return "javascript:" + url.PathEscape(js)
}
