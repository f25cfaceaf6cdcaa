// Copyright (c) 2025 Quill Project
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opptym/quill/logger"
	"github.com/opptym/quill/script"
	"github.com/opptym/quill/submission"
	"github.com/opptym/quill/token"
)

// HandlerProperties contains the collaborators of the HTTP handler
type HandlerProperties struct {
	Tokens      token.Store
	Synthesizer *script.Synthesizer
	Submissions *submission.Recorder
	Logger      logger.Logger

	// BaseURL is the externally reachable base URL of this server,
	// used to build loader bookmarklets at issuance time.
	BaseURL string
}

// Handler creates and returns the main HTTP handler for Quill.
//
// The script delivery route is fetched from arbitrary third-party page
// origins, so it answers with permissive CORS headers on every path,
// error responses included. The submission report route is called by
// the delivered script from the same foreign origins and gets the same
// treatment.
func Handler(props *HandlerProperties) http.Handler {
	r := chi.NewRouter()

	r.Post("/v1/tokens", handleTokenIssue(props))

	r.Get("/v1/bookmarklet-script", handleScriptDelivery(props))
	r.Options("/v1/bookmarklet-script", handlePreflight("GET, OPTIONS"))

	r.Post("/v1/submissions", handleSubmissionReport(props))
	r.Options("/v1/submissions", handlePreflight("POST, OPTIONS"))

	return r
}

// handlePreflight answers a CORS preflight with a bare 200 carrying
// the same permissive headers as the real response.
func handlePreflight(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w, methods)
		w.WriteHeader(http.StatusOK)
	}
}
