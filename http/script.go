package http

import (
	"errors"
	"net/http"

	"github.com/opptym/quill/directory"
	"github.com/opptym/quill/helper"
	"github.com/opptym/quill/logger"
	"github.com/opptym/quill/project"
	"github.com/opptym/quill/script"
	"github.com/opptym/quill/token"
)

// User-facing failure messages. Each consumption failure keeps its own
// message so the dashboard can tell "regenerate the bookmarklet" apart
// from "out of quota".
const (
	msgTokenInvalid  = "Invalid or expired token"
	msgTokenExpired  = "Token has expired, please generate a new bookmarklet"
	msgTokenMismatch = "Token does not match the requested project and link"
	msgLimitReached  = "Usage limit reached for this bookmarklet"
)

// handleScriptDelivery serves GET /v1/bookmarklet-script.
//
// The token is consumed before the snapshot is fetched. A fetch miss
// after consumption does not refund the use: delivery is pay-first.
func handleScriptDelivery(props *HandlerProperties) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w, "GET, OPTIONS")

		query := r.URL.Query()
		tokenID := query.Get("token")
		projectID := query.Get("projectId")
		linkID := query.Get("linkId")

		if tokenID == "" {
			respondError(w, http.StatusBadRequest, "missing required parameter: token")
			return
		}
		if projectID == "" {
			respondError(w, http.StatusBadRequest, "missing required parameter: projectId")
			return
		}
		if linkID == "" {
			respondError(w, http.StatusBadRequest, "missing required parameter: linkId")
			return
		}

		tokenHash := helper.Get8BytesHash(tokenID)

		result, err := props.Tokens.CheckAndConsume(r.Context(), tokenID, projectID, linkID)
		if err != nil {
			status, message := consumeErrorResponse(err)
			props.Logger.Warn("script delivery refused",
				logger.String("token_hash", tokenHash),
				logger.String("project_id", projectID),
				logger.String("link_id", linkID),
				logger.Err(err))
			respondError(w, status, message)
			return
		}

		body, err := props.Synthesizer.Generate(r.Context(), script.Input{
			TokenID:       tokenID,
			ProjectID:     projectID,
			LinkID:        linkID,
			RemainingUses: result.Remaining,
			UsageLimit:    result.MaxUsage,
			UsageCount:    result.UsageCount,
		})
		if err != nil {
			status, message := synthesisErrorResponse(err)
			props.Logger.Error("script synthesis failed",
				logger.String("token_hash", tokenHash),
				logger.String("project_id", projectID),
				logger.String("link_id", linkID),
				logger.Err(err))
			respondError(w, status, message)
			return
		}

		w.Header().Set("Content-Type", "application/javascript")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}
}

// consumeErrorResponse maps token consumption failures to status codes
// and user-facing messages, verbatim per cause.
func consumeErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, token.ErrNotFound):
		return http.StatusBadRequest, msgTokenInvalid
	case errors.Is(err, token.ErrExpired):
		return http.StatusBadRequest, msgTokenExpired
	case errors.Is(err, token.ErrMismatch):
		return http.StatusBadRequest, msgTokenMismatch
	case errors.Is(err, token.ErrLimitReached):
		return http.StatusTooManyRequests, msgLimitReached
	default:
		return http.StatusInternalServerError, "failed to validate token"
	}
}

func synthesisErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, script.ErrInvalidIdentifier):
		return http.StatusBadRequest, "malformed project or link identifier"
	case errors.Is(err, project.ErrNotFound):
		return http.StatusNotFound, "project not found"
	case errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound, "directory link not found"
	default:
		return http.StatusInternalServerError, "failed to generate script"
	}
}
