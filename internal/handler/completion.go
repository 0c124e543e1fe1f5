package handler

import (
	"log/slog"
	"net/http"

	svc "codebench/internal/domain/services/completion"
	"codebench/internal/httputil"
)

// CompletionHandler handles AI completion requests
type CompletionHandler struct {
	completer svc.Completer
	logger    *slog.Logger
}

// NewCompletionHandler creates a new completion handler
func NewCompletionHandler(completer svc.Completer, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{
		completer: completer,
		logger:    logger,
	}
}

// Complete generates a completion
// POST /api/completions
func (h *CompletionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req svc.Request
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.completer.Complete(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
