package script

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderURL(t *testing.T) {
	loader := LoaderURL("https://quill.example.com", "bmk.abc123", testProjectID, testLinkID)

	require.True(t, strings.HasPrefix(loader, "javascript:"))

	js, err := url.PathUnescape(strings.TrimPrefix(loader, "javascript:"))
	require.NoError(t, err)

	assert.Contains(t, js, "document.createElement('script')")
	assert.Contains(t, js, "https://quill.example.com/v1/bookmarklet-script?")
	assert.Contains(t, js, "token=bmk.abc123")
	assert.Contains(t, js, "projectId="+testProjectID)
	assert.Contains(t, js, "linkId="+testLinkID)
}

func TestLoaderURL_TrimsTrailingSlash(t *testing.T) {
	loader := LoaderURL("https://quill.example.com/", "bmk.abc123", testProjectID, testLinkID)

	js, err := url.PathUnescape(strings.TrimPrefix(loader, "javascript:"))
	require.NoError(t, err)

	assert.Contains(t, js, "https://quill.example.com/v1/bookmarklet-script?")
	assert.NotContains(t, js, "com//v1")
}
