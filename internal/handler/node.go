package handler

import (
	"log/slog"
	"net/http"

	svcft "codebench/internal/domain/services/filetree"
	"codebench/internal/httputil"
)

// NodeHandler handles node HTTP requests
type NodeHandler struct {
	treeService svcft.TreeService
	logger      *slog.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(treeService svcft.TreeService, logger *slog.Logger) *NodeHandler {
	return &NodeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// CreateNode creates a new file or folder
// POST /api/projects/{id}/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project ID is required")
		return
	}

	var req svcft.CreateNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := httputil.GetUserID(r)

	node, err := h.treeService.CreateNode(r.Context(), userID, projectID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

// UpdateNode renames and/or moves a node
// PATCH /api/projects/{id}/nodes/{nodeID}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	nodeID := r.PathValue("nodeID")
	if projectID == "" || nodeID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project ID and node ID are required")
		return
	}

	var req svcft.UpdateNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := httputil.GetUserID(r)

	node, err := h.treeService.RenameOrMove(r.Context(), userID, projectID, nodeID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// DeleteNode soft-deletes a node and its descendants
// DELETE /api/projects/{id}/nodes/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	nodeID := r.PathValue("nodeID")
	if projectID == "" || nodeID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project ID and node ID are required")
		return
	}

	userID := httputil.GetUserID(r)

	deletedPath, err := h.treeService.DeleteNode(r.Context(), userID, projectID, nodeID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"deleted_path": deletedPath,
	})
}
