package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/opptym/quill/logger"
	"github.com/opptym/quill/script"
)

// TokenIssueRequest is the body of POST /v1/tokens. Plan-based quota
// and caller authentication are enforced by the dashboard backend
// before it calls this endpoint.
type TokenIssueRequest struct {
	ProjectID string `json:"projectId"`
	LinkID    string `json:"linkId"`
	MaxUsage  int    `json:"maxUsage,omitempty"`
}

// TokenIssueResponse is the body of a successful issuance.
type TokenIssueResponse struct {
	TokenID    string    `json:"tokenId"`
	UsageLimit int       `json:"usageLimit"`
	ExpiresAt  time.Time `json:"expiresAt"`
	LoaderURL  string    `json:"loaderUrl,omitempty"`
}

func handleTokenIssue(props *HandlerProperties) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TokenIssueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.ProjectID == "" {
			respondError(w, http.StatusBadRequest, "missing required field: projectId")
			return
		}
		if req.LinkID == "" {
			respondError(w, http.StatusBadRequest, "missing required field: linkId")
			return
		}

		tok, err := props.Tokens.Issue(r.Context(), req.ProjectID, req.LinkID, req.MaxUsage)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		props.Logger.Info("bookmarklet token issued",
			logger.String("project_id", req.ProjectID),
			logger.String("link_id", req.LinkID),
			logger.Int("usage_limit", tok.MaxUsage))

		resp := &TokenIssueResponse{
			TokenID:    tok.ID,
			UsageLimit: tok.MaxUsage,
			ExpiresAt:  tok.ExpireAt,
		}
		if props.BaseURL != "" {
			resp.LoaderURL = script.LoaderURL(props.BaseURL, tok.ID, tok.ProjectID, tok.LinkID)
		}

		respondOk(w, resp)
	}
}
