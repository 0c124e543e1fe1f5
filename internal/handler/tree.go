package handler

import (
	"log/slog"
	"net/http"

	svcft "codebench/internal/domain/services/filetree"
	"codebench/internal/httputil"
)

// TreeHandler handles HTTP requests for tree listing
type TreeHandler struct {
	treeService svcft.TreeService
	logger      *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(treeService svcft.TreeService, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// GetTree returns all live nodes of a project, flat and nested
// GET /api/projects/{id}/tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project ID is required")
		return
	}

	userID := httputil.GetUserID(r)

	tree, err := h.treeService.ListTree(r.Context(), userID, projectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}
