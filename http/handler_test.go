// Copyright (c) 2025 Quill Project
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opptym/quill/directory"
	"github.com/opptym/quill/logger"
	"github.com/opptym/quill/project"
	"github.com/opptym/quill/script"
	"github.com/opptym/quill/storage"
	"github.com/opptym/quill/submission"
	"github.com/opptym/quill/token"
)

const (
	testProjectID = "64f1b2c3d4e5f6a7b8c9d0e1"
	testLinkID    = "64f1b2c3d4e5f6a7b8c9d0e2"
	otherLinkID   = "64f1b2c3d4e5f6a7b8c9d0e3"
)

type testServer struct {
	handler http.Handler
	tokens  token.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.NewTestLogger()

	backend := storage.NewMemoryBackend()
	t.Cleanup(func() { backend.Stop() })

	projects, err := project.NewRegistry(backend, log)
	require.NoError(t, err)
	t.Cleanup(projects.Close)

	links, err := directory.NewRegistry(backend, log)
	require.NoError(t, err)
	t.Cleanup(links.Close)

	require.NoError(t, projects.Put(context.Background(), &project.Snapshot{
		ID:    testProjectID,
		Name:  "Acme Web Studio",
		URL:   "https://acme-web.example.com",
		Email: "hello@acme-web.example.com",
	}))
	require.NoError(t, links.Put(context.Background(), &directory.Link{
		ID:   testLinkID,
		Name: "Example Directory",
		URL:  "https://directory.example.com/submit",
		Fields: []directory.FieldDescriptor{
			{Name: "business_name", Type: "text", Required: true},
		},
	}))

	tokens := token.NewInmemStore(log, nil)
	t.Cleanup(func() { tokens.Close() })

	synthesizer := script.NewSynthesizer(projects, links, "http://127.0.0.1:8200/v1/submissions", log)
	recorder := submission.NewRecorder(backend, log)

	return &testServer{
		handler: Handler(&HandlerProperties{
			Tokens:      tokens,
			Synthesizer: synthesizer,
			Submissions: recorder,
			Logger:      log,
			BaseURL:     "http://127.0.0.1:8200",
		}),
		tokens: tokens,
	}
}

func (ts *testServer) issueToken(t *testing.T, maxUsage int) TokenIssueResponse {
	t.Helper()
	body, _ := json.Marshal(TokenIssueRequest{
		ProjectID: testProjectID,
		LinkID:    testLinkID,
		MaxUsage:  maxUsage,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/tokens", bytes.NewReader(body))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TokenIssueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (ts *testServer) fetchScript(t *testing.T, tokenID, projectID, linkID string) *httptest.ResponseRecorder {
	t.Helper()
	params := url.Values{}
	params.Set("token", tokenID)
	params.Set("projectId", projectID)
	params.Set("linkId", linkID)

	req := httptest.NewRequest(http.MethodGet, "/v1/bookmarklet-script?"+params.Encode(), nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func errorMessages(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Errors
}

func TestHandler_TokenIssue(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.issueToken(t, 3)
	assert.NotEmpty(t, resp.TokenID)
	assert.Equal(t, 3, resp.UsageLimit)
	assert.False(t, resp.ExpiresAt.IsZero())
	assert.Contains(t, resp.LoaderURL, "javascript:")
}

func TestHandler_TokenIssue_DefaultLimit(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.issueToken(t, 0)
	assert.Equal(t, 3, resp.UsageLimit)
}

func TestHandler_TokenIssue_MissingFields(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(TokenIssueRequest{LinkID: testLinkID})
	req := httptest.NewRequest(http.MethodPost, "/v1/tokens", bytes.NewReader(body))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessages(t, w)[0], "projectId")
}

func TestHandler_TokenIssue_InvalidBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/tokens", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_TokenIssue_MalformedIdentifier(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(TokenIssueRequest{ProjectID: "not-hex", LinkID: testLinkID})
	req := httptest.NewRequest(http.MethodPost, "/v1/tokens", bytes.NewReader(body))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ScriptDelivery(t *testing.T) {
	ts := newTestServer(t)
	issued := ts.issueToken(t, 3)

	w := ts.fetchScript(t, issued.TokenID, testProjectID, testLinkID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Body.String(), "Acme Web Studio")
	assert.Contains(t, w.Body.String(), `"remainingUsage":2`)
}

func TestHandler_ScriptDelivery_MissingParams(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/bookmarklet-script", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessages(t, w)[0], "token")
	// CORS headers are present on error responses too
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_ScriptDelivery_UnknownToken(t *testing.T) {
	ts := newTestServer(t)

	w := ts.fetchScript(t, "bmk.forged", testProjectID, testLinkID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"Invalid or expired token"}, errorMessages(t, w))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_ScriptDelivery_Mismatch(t *testing.T) {
	ts := newTestServer(t)
	issued := ts.issueToken(t, 3)

	w := ts.fetchScript(t, issued.TokenID, testProjectID, otherLinkID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"Token does not match the requested project and link"}, errorMessages(t, w))
}

func TestHandler_ScriptDelivery_SingleUseFlow(t *testing.T) {
	ts := newTestServer(t)
	issued := ts.issueToken(t, 1)

	w := ts.fetchScript(t, issued.TokenID, testProjectID, testLinkID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remainingUsage":0`)

	// The token was tombstoned on its last use; a replay is
	// indistinguishable from a forged token.
	w = ts.fetchScript(t, issued.TokenID, testProjectID, testLinkID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"Invalid or expired token"}, errorMessages(t, w))
}

func TestHandler_ScriptDelivery_MultiUseFlow(t *testing.T) {
	ts := newTestServer(t)
	issued := ts.issueToken(t, 3)

	for i := 0; i < 3; i++ {
		w := ts.fetchScript(t, issued.TokenID, testProjectID, testLinkID)
		require.Equal(t, http.StatusOK, w.Code, "delivery %d", i+1)
	}

	w := ts.fetchScript(t, issued.TokenID, testProjectID, testLinkID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"Invalid or expired token"}, errorMessages(t, w))
}

func TestHandler_ScriptDelivery_LimitReached(t *testing.T) {
	ts := newTestServer(t)
	issued := ts.issueToken(t, 2)

	// Drive the counter to the limit through the public flow, then put
	// an exhausted record back so the quota check is observable. This is
	// the shape an external writer can produce in shared storage.
	for i := 0; i < 2; i++ {
		w := ts.fetchScript(t, issued.TokenID, testProjectID, testLinkID)
		require.Equal(t, http.StatusOK, w.Code)
	}

	store := ts.tokens.(*token.InmemStore)
	store.Seed(&token.Token{
		ID:         issued.TokenID,
		ProjectID:  testProjectID,
		LinkID:     testLinkID,
		ExpireAt:   issued.ExpiresAt,
		UsageCount: 2,
		MaxUsage:   2,
	})

	w := ts.fetchScript(t, issued.TokenID, testProjectID, testLinkID)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, []string{"Usage limit reached for this bookmarklet"}, errorMessages(t, w))
}

func TestHandler_ScriptDelivery_ProjectMissing(t *testing.T) {
	ts := newTestServer(t)

	// Issue against a well-formed but unknown project id: issuance does
	// not verify existence, delivery does.
	body, _ := json.Marshal(TokenIssueRequest{
		ProjectID: "64f1b2c3d4e5f6a7b8c9d0ff",
		LinkID:    testLinkID,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/tokens", bytes.NewReader(body))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var issued TokenIssueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))

	got := ts.fetchScript(t, issued.TokenID, "64f1b2c3d4e5f6a7b8c9d0ff", testLinkID)
	assert.Equal(t, http.StatusNotFound, got.Code)

	// The failed synthesis consumed a use: pay-first delivery.
	tok, err := ts.tokens.Validate(context.Background(), issued.TokenID)
	require.NoError(t, err)
	assert.Equal(t, 1, tok.UsageCount)
}

func TestHandler_Preflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/bookmarklet-script", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodOptions, "/v1/submissions", nil)
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestHandler_SubmissionReport(t *testing.T) {
	ts := newTestServer(t)
	issued := ts.issueToken(t, 3)

	w := ts.fetchScript(t, issued.TokenID, testProjectID, testLinkID)
	require.Equal(t, http.StatusOK, w.Code)

	body, _ := json.Marshal(SubmissionRequest{
		Token:       issued.TokenID,
		ProjectID:   testProjectID,
		LinkID:      testLinkID,
		URL:         "https://directory.example.com/submit",
		Title:       "Submit your site",
		Description: "Directory submission page",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/submissions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.UsageCount)
	assert.Equal(t, 3, resp.MaxUsage)
	assert.Equal(t, 2, resp.RemainingUsage)
	assert.Equal(t, 1, resp.TotalSubmissions)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_SubmissionReport_ExhaustedToken(t *testing.T) {
	ts := newTestServer(t)
	issued := ts.issueToken(t, 1)

	w := ts.fetchScript(t, issued.TokenID, testProjectID, testLinkID)
	require.Equal(t, http.StatusOK, w.Code)

	// The token is already tombstoned; the report still lands and the
	// counters fall back to zero.
	body, _ := json.Marshal(SubmissionRequest{
		Token:     issued.TokenID,
		ProjectID: testProjectID,
		LinkID:    testLinkID,
		URL:       "https://directory.example.com/submit",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/submissions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalSubmissions)
	assert.Equal(t, 0, resp.UsageCount)
	assert.Equal(t, 0, resp.MaxUsage)
}

func TestHandler_SubmissionReport_MissingIdentifiers(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(SubmissionRequest{URL: "https://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/v1/submissions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_SubmissionReport_Accumulates(t *testing.T) {
	ts := newTestServer(t)
	issued := ts.issueToken(t, 3)

	for i := 1; i <= 3; i++ {
		body, _ := json.Marshal(SubmissionRequest{
			Token:     issued.TokenID,
			ProjectID: testProjectID,
			LinkID:    testLinkID,
			URL:       "https://directory.example.com/submit",
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/submissions", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SubmissionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, i, resp.TotalSubmissions)
	}
}
