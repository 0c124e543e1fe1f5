package handler

import (
	"log/slog"
	"net/http"

	svcft "codebench/internal/domain/services/filetree"
	"codebench/internal/httputil"
)

// ContentHandler handles file body reads and writes
type ContentHandler struct {
	treeService svcft.TreeService
	logger      *slog.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(treeService svcft.TreeService, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// ReadContent returns the current body of a file as text
// GET /api/projects/{id}/nodes/{nodeID}/content
func (h *ContentHandler) ReadContent(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	nodeID := r.PathValue("nodeID")
	if projectID == "" || nodeID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project ID and node ID are required")
		return
	}

	userID := httputil.GetUserID(r)

	text, err := h.treeService.ReadContent(r.Context(), userID, projectID, nodeID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondText(w, http.StatusOK, text)
}

// WriteContent replaces the body of a file with the raw request body
// PUT /api/projects/{id}/nodes/{nodeID}/content
func (h *ContentHandler) WriteContent(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	nodeID := r.PathValue("nodeID")
	if projectID == "" || nodeID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project ID and node ID are required")
		return
	}

	body, err := httputil.ReadBody(w, r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	userID := httputil.GetUserID(r)

	if err := h.treeService.WriteContent(r.Context(), userID, projectID, nodeID, string(body)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
