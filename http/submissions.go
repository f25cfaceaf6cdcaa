package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opptym/quill/logger"
	"github.com/opptym/quill/submission"
	"github.com/opptym/quill/token"
)

// SubmissionRequest is the body the generated script posts after a
// successful fill.
type SubmissionRequest struct {
	Token       string `json:"token"`
	ProjectID   string `json:"projectId"`
	LinkID      string `json:"linkId"`
	DeliveryID  string `json:"deliveryId"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SubmissionResponse carries the counters the dashboard displays.
type SubmissionResponse struct {
	UsageCount       int `json:"usageCount"`
	MaxUsage         int `json:"maxUsage"`
	RemainingUsage   int `json:"remainingUsage"`
	TotalSubmissions int `json:"totalSubmissions"`
}

func handleSubmissionReport(props *HandlerProperties) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w, "POST, OPTIONS")

		var req SubmissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.ProjectID == "" || req.LinkID == "" {
			respondError(w, http.StatusBadRequest, "missing project or link identifier")
			return
		}

		total, err := props.Submissions.Record(r.Context(), &submission.Event{
			TokenID:     req.Token,
			ProjectID:   req.ProjectID,
			LinkID:      req.LinkID,
			DeliveryID:  req.DeliveryID,
			PageURL:     req.URL,
			PageTitle:   req.Title,
			Description: req.Description,
		})
		if err != nil {
			props.Logger.Error("failed to record submission",
				logger.String("project_id", req.ProjectID),
				logger.String("link_id", req.LinkID),
				logger.Err(err))
			respondError(w, http.StatusInternalServerError, "failed to record submission")
			return
		}

		resp := &SubmissionResponse{TotalSubmissions: total}

		// An exhausted token is tombstoned by the time its last report
		// arrives; counters then fall back to the fully-used shape.
		tok, err := props.Tokens.Validate(r.Context(), req.Token)
		switch {
		case err == nil:
			resp.UsageCount = tok.UsageCount
			resp.MaxUsage = tok.MaxUsage
			resp.RemainingUsage = tok.Remaining()
		case errors.Is(err, token.ErrNotFound):
			// leave zeroed counters
		default:
			props.Logger.Warn("failed to load token counters",
				logger.Err(err))
		}

		respondOk(w, resp)
	}
}
