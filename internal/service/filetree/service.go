package filetree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"codebench/internal/config"
	"codebench/internal/domain"
	models "codebench/internal/domain/models/filetree"
	repoft "codebench/internal/domain/repositories/filetree"
	"codebench/internal/domain/services"
	svcft "codebench/internal/domain/services/filetree"
	"codebench/internal/events"
)

var nameNoSlash = regexp.MustCompile(`^[^/]+$`)

type service struct {
	nodes  repoft.NodeStore
	blobs  repoft.BlobStore
	guard  services.AccessGuard
	bus    events.Bus
	logger *slog.Logger
}

// NewService creates the file-tree service.
func NewService(
	nodes repoft.NodeStore,
	blobs repoft.BlobStore,
	guard services.AccessGuard,
	bus events.Bus,
	logger *slog.Logger,
) svcft.TreeService {
	return &service{
		nodes:  nodes,
		blobs:  blobs,
		guard:  guard,
		bus:    bus,
		logger: logger,
	}
}

// ListTree returns all live nodes of a project, flat and nested.
func (s *service) ListTree(ctx context.Context, userID, projectID string) (*models.Tree, error) {
	if err := s.guard.CanAccessProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	nodes, err := s.nodes.ListLive(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tree: %w", err)
	}

	entries := make([]models.Entry, 0, len(nodes))
	for i := range nodes {
		entries = append(entries, entryOf(&nodes[i]))
	}

	return &models.Tree{
		Entries: entries,
		Roots:   nest(entries),
	}, nil
}

// CreateNode creates a file or folder, optionally with initial content.
// Creation is atomic from the caller's perspective: either a fully-formed
// live node exists afterward, or none does.
func (s *service) CreateNode(ctx context.Context, userID, projectID string, req *svcft.CreateNodeRequest) (*models.Node, error) {
	if err := s.guard.CanAccessProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	// Normalize empty string to nil for root-level nodes
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}
	req.Name = strings.TrimSpace(req.Name)

	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	parentPath := ""
	if req.ParentID != nil {
		parent, err := s.loadLiveFolder(ctx, projectID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		parentPath = parent.Path
	}

	path, err := Materialize(parentPath, req.Name)
	if err != nil {
		return nil, err
	}
	if len(path) > config.MaxNodePathLength {
		return nil, fmt.Errorf("%w: path exceeds %d characters", domain.ErrValidation, config.MaxNodePathLength)
	}

	if existing, err := s.nodes.GetByPath(ctx, projectID, path); err == nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("a node already exists at %q", path),
			ResourceType: string(existing.Type),
			ResourceID:   existing.ID,
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check path conflict: %w", err)
	}

	now := time.Now()
	node := &models.Node{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		ParentID:  req.ParentID,
		Name:      req.Name,
		Type:      req.Type,
		Path:      path,
		CreatedBy: userID,
		UpdatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Upload the initial body before the row exists, so a failed upload
	// leaves no partial node visible.
	if req.Type == models.NodeTypeFile && req.Content != "" {
		key := BlobKey(projectID, path)
		if err := s.blobs.Upload(ctx, key, []byte(req.Content)); err != nil {
			return nil, fmt.Errorf("upload initial content: %w", err)
		}
		node.Body = models.ExternalBody{Key: key}
		node.SizeBytes = int64(len(req.Content))
	}

	if err := s.nodes.Insert(ctx, node); err != nil {
		// The blob was uploaded for a row that never became visible.
		if key := node.StorageKey(); key != "" {
			if rmErr := s.blobs.RemoveMany(ctx, []string{key}); rmErr != nil {
				s.logger.Warn("failed to remove blob after aborted create",
					"key", key, "error", rmErr)
				s.bus.Publish(events.Event{
					Type:      events.TypeBlobOrphaned,
					ProjectID: projectID,
					Keys:      []string{key},
				})
			}
		}
		return nil, err
	}

	s.logger.Info("node created",
		"id", node.ID,
		"name", node.Name,
		"type", node.Type,
		"project_id", projectID,
		"path", node.Path,
	)

	return node, nil
}

// RenameOrMove renames a node, moves it to a new parent, or both, rewriting
// the materialized paths of all live descendants when the node is a folder.
func (s *service) RenameOrMove(ctx context.Context, userID, projectID, nodeID string, req *svcft.UpdateNodeRequest) (*models.Node, error) {
	if err := s.guard.CanAccessProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	node, err := s.loadLiveNode(ctx, projectID, nodeID)
	if err != nil {
		return nil, err
	}

	newName := node.Name
	if req.Name != nil {
		newName = strings.TrimSpace(*req.Name)
	}

	// Tri-state: only change the parent if the field was present in the
	// request. null moves to root.
	newParentID := node.ParentID
	if req.ParentID.Present {
		newParentID = req.ParentID.Value
	}

	newParentPath := ""
	if newParentID != nil {
		if *newParentID == nodeID {
			return nil, &domain.ConflictError{
				Message:      "cannot move a node into itself",
				ResourceType: string(node.Type),
				ResourceID:   nodeID,
			}
		}
		parent, err := s.loadLiveFolder(ctx, projectID, *newParentID)
		if err != nil {
			return nil, err
		}
		// Cycle prevention: a folder may never become its own descendant.
		if node.IsFolder() && strings.HasPrefix(parent.Path+"/", node.Path+"/") {
			return nil, &domain.ConflictError{
				Message:      "cannot move a folder into its own descendant",
				ResourceType: string(models.NodeTypeFolder),
				ResourceID:   node.ID,
			}
		}
		newParentPath = parent.Path
	}

	oldPath := node.Path
	newPath, err := Materialize(newParentPath, newName)
	if err != nil {
		return nil, err
	}
	if len(newPath) > config.MaxNodePathLength {
		return nil, fmt.Errorf("%w: path exceeds %d characters", domain.ErrValidation, config.MaxNodePathLength)
	}

	if newPath == oldPath {
		return node, nil
	}

	// Conflict re-check with a fresh read immediately before the row
	// update. Narrows the concurrent-write window; does not close it.
	if existing, err := s.nodes.GetByPath(ctx, projectID, newPath); err == nil && existing.ID != node.ID {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("a node already exists at %q", newPath),
			ResourceType: string(existing.Type),
			ResourceID:   existing.ID,
		}
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check path conflict: %w", err)
	}

	prev := *node
	node.Name = newName
	node.ParentID = newParentID
	node.Path = newPath
	node.UpdatedBy = userID
	node.UpdatedAt = time.Now()

	oldKey := node.StorageKey()
	newKey := ""
	if !node.IsFolder() && oldKey != "" {
		newKey = BlobKey(projectID, newPath)
		node.Body = models.ExternalBody{Key: newKey}
	}

	if err := s.nodes.Update(ctx, node); err != nil {
		return nil, err
	}

	// Single-file blob relocation. Metadata and blob location must not
	// disagree about which object holds the live content, so a failed move
	// rolls the row back.
	if newKey != "" {
		if err := s.blobs.Move(ctx, oldKey, newKey); err != nil {
			if rbErr := s.nodes.Update(ctx, &prev); rbErr != nil {
				s.logger.Error("rollback after blob move failure also failed",
					"node_id", node.ID,
					"old_key", oldKey,
					"new_key", newKey,
					"error", rbErr,
				)
			}
			// A missing object under a live key is a blob-layer fault,
			// not a missing node; surface it as retryable.
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("file content missing during relocation: %w", domain.ErrStoreUnavailable)
			}
			return nil, fmt.Errorf("relocate file content: %w", err)
		}
	}

	if node.IsFolder() {
		s.cascadePaths(ctx, userID, projectID, oldPath, newPath)
	}

	s.logger.Info("node renamed or moved",
		"id", node.ID,
		"name", node.Name,
		"project_id", projectID,
		"old_path", oldPath,
		"path", newPath,
	)

	return node, nil
}

// cascadePaths rewrites the materialized paths (and blob keys) of every live
// descendant after a folder rename/move. Metadata path correctness is the
// invariant that must hold; blob relocation failures degrade to objects
// still reachable by their recorded key, reconcilable later. Requiring
// all-or-nothing across an arbitrarily large subtree would make moves
// non-terminating under partial outages, so each descendant is handled
// independently.
func (s *service) cascadePaths(ctx context.Context, userID, projectID, oldPath, newPath string) {
	descendants, err := s.nodes.ListDescendants(ctx, projectID, oldPath)
	if err != nil {
		s.logger.Error("failed to list descendants for path cascade",
			"project_id", projectID, "old_path", oldPath, "error", err)
		s.bus.Publish(events.Event{
			Type:      events.TypePathRepair,
			ProjectID: projectID,
		})
		return
	}

	for i := range descendants {
		d := &descendants[i]
		rebased := Rebase(d.Path, oldPath, newPath)

		d.Path = rebased
		d.UpdatedBy = userID
		d.UpdatedAt = time.Now()
		if err := s.nodes.Update(ctx, d); err != nil {
			s.logger.Error("failed to rewrite descendant path",
				"node_id", d.ID, "path", rebased, "error", err)
			s.bus.Publish(events.Event{
				Type:      events.TypePathRepair,
				ProjectID: projectID,
				NodeID:    d.ID,
			})
			continue
		}

		key := d.StorageKey()
		if key == "" {
			continue
		}
		newKey := BlobKey(projectID, rebased)
		if newKey == key {
			continue
		}
		if err := s.blobs.Move(ctx, key, newKey); err != nil {
			// The row keeps its old key, so the object stays reachable.
			s.logger.Warn("failed to relocate descendant blob",
				"node_id", d.ID, "old_key", key, "new_key", newKey, "error", err)
			continue
		}
		d.Body = models.ExternalBody{Key: newKey}
		if err := s.nodes.Update(ctx, d); err != nil {
			s.logger.Error("failed to record relocated blob key",
				"node_id", d.ID, "new_key", newKey, "error", err)
			// Put the object back so the recorded key stays accurate.
			if mvErr := s.blobs.Move(ctx, newKey, key); mvErr != nil {
				s.logger.Error("failed to restore descendant blob",
					"node_id", d.ID, "key", key, "error", mvErr)
				s.bus.Publish(events.Event{
					Type:      events.TypeBlobOrphaned,
					ProjectID: projectID,
					NodeID:    d.ID,
					Keys:      []string{key, newKey},
				})
			}
		}
	}
}

// DeleteNode soft-deletes a node and, for folders, all live descendants.
// After it returns, no live node exists at the deleted path or under it,
// regardless of blob-layer outcome.
func (s *service) DeleteNode(ctx context.Context, userID, projectID, nodeID string) (string, error) {
	if err := s.guard.CanAccessProject(ctx, userID, projectID); err != nil {
		return "", err
	}

	node, err := s.loadLiveNode(ctx, projectID, nodeID)
	if err != nil {
		return "", err
	}

	ids := []string{node.ID}
	keys := []string{}
	if key := node.StorageKey(); key != "" {
		keys = append(keys, key)
	}

	if node.IsFolder() {
		descendants, err := s.nodes.ListDescendants(ctx, projectID, node.Path)
		if err != nil {
			return "", fmt.Errorf("list descendants: %w", err)
		}
		for i := range descendants {
			ids = append(ids, descendants[i].ID)
			if key := descendants[i].StorageKey(); key != "" {
				keys = append(keys, key)
			}
		}
	}

	// One store call tombstones the whole subtree, so the caller never
	// observes a partially-deleted tree.
	if err := s.nodes.SoftDelete(ctx, projectID, ids, userID, time.Now()); err != nil {
		return "", err
	}

	// Soft-deleted metadata is authoritative; blob garbage is a
	// reconcilable concern, never a delete failure. A cleanup event hands
	// the keys to the background subscriber for another removal attempt.
	if len(keys) > 0 {
		if err := s.blobs.RemoveMany(ctx, keys); err != nil {
			s.logger.Warn("blob cleanup after delete failed",
				"project_id", projectID, "node_id", nodeID, "keys", len(keys), "error", err)
			s.bus.Publish(events.Event{
				Type:      events.TypeBlobCleanup,
				ProjectID: projectID,
				NodeID:    nodeID,
				Keys:      keys,
			})
		}
	}

	s.logger.Info("node deleted",
		"id", node.ID,
		"name", node.Name,
		"type", node.Type,
		"project_id", projectID,
		"path", node.Path,
		"descendants", len(ids)-1,
	)

	return node.Path, nil
}

// ReadContent returns the current body of a file node as text.
func (s *service) ReadContent(ctx context.Context, userID, projectID, nodeID string) (string, error) {
	if err := s.guard.CanAccessProject(ctx, userID, projectID); err != nil {
		return "", err
	}

	node, err := s.loadLiveNode(ctx, projectID, nodeID)
	if err != nil {
		return "", err
	}
	if node.IsFolder() {
		return "", fmt.Errorf("%w: folders have no content", domain.ErrValidation)
	}

	switch body := node.Body.(type) {
	case models.InlineBody:
		return body.Text, nil
	case models.ExternalBody:
		data, err := s.blobs.Download(ctx, body.Key)
		if err != nil {
			// A missing object for a live key is a blob-layer fault, not a
			// missing node; surface it as retryable.
			if errors.Is(err, domain.ErrNotFound) {
				return "", fmt.Errorf("file content temporarily unavailable: %w", domain.ErrStoreUnavailable)
			}
			return "", fmt.Errorf("download content: %w", err)
		}
		return string(data), nil
	default:
		// Empty new file before first save.
		return "", nil
	}
}

// WriteContent replaces the body of a file node. The body is always
// externalized: it is uploaded to the node's existing storage key (or a
// freshly derived one), and only then is the row updated, so the row never
// points at an object that does not exist.
func (s *service) WriteContent(ctx context.Context, userID, projectID, nodeID, text string) error {
	if err := s.guard.CanAccessProject(ctx, userID, projectID); err != nil {
		return err
	}

	if len(text) > config.MaxContentBytes {
		return fmt.Errorf("%w: content exceeds %d bytes", domain.ErrValidation, config.MaxContentBytes)
	}

	node, err := s.loadLiveNode(ctx, projectID, nodeID)
	if err != nil {
		return err
	}
	if node.IsFolder() {
		return fmt.Errorf("%w: folders have no content", domain.ErrValidation)
	}

	key := node.StorageKey()
	if key == "" {
		key = BlobKey(projectID, node.Path)
	}

	if err := s.blobs.Upload(ctx, key, []byte(text)); err != nil {
		return fmt.Errorf("upload content: %w", err)
	}

	node.Body = models.ExternalBody{Key: key}
	node.SizeBytes = int64(len(text))
	node.UpdatedBy = userID
	node.UpdatedAt = time.Now()

	if err := s.nodes.Update(ctx, node); err != nil {
		return err
	}

	s.logger.Info("content written",
		"id", node.ID,
		"project_id", projectID,
		"path", node.Path,
		"size_bytes", node.SizeBytes,
	)

	return nil
}

// loadLiveNode fetches a node and rejects soft-deleted ones.
func (s *service) loadLiveNode(ctx context.Context, projectID, nodeID string) (*models.Node, error) {
	node, err := s.nodes.GetByID(ctx, projectID, nodeID)
	if err != nil {
		return nil, err
	}
	if node.IsDeleted {
		return nil, fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
	}
	return node, nil
}

// loadLiveFolder fetches a node that must be a live folder (a parent).
func (s *service) loadLiveFolder(ctx context.Context, projectID, folderID string) (*models.Node, error) {
	node, err := s.loadLiveNode(ctx, projectID, folderID)
	if err != nil {
		return nil, err
	}
	if !node.IsFolder() {
		return nil, fmt.Errorf("parent %s is not a folder: %w", folderID, domain.ErrNotFound)
	}
	return node, nil
}

func (s *service) validateCreateRequest(req *svcft.CreateNodeRequest) error {
	if req.Type == models.NodeTypeFolder && req.Content != "" {
		return fmt.Errorf("folders cannot have content")
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxNodeNameLength),
			validation.Match(nameNoSlash).Error("name cannot contain slashes"),
		),
		validation.Field(&req.Type,
			validation.Required,
			validation.In(models.NodeTypeFile, models.NodeTypeFolder),
		),
	)
}

func (s *service) validateUpdateRequest(req *svcft.UpdateNodeRequest) error {
	// At least one field must be provided
	if req.Name == nil && !req.ParentID.Present {
		return fmt.Errorf("at least one field must be provided")
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return fmt.Errorf("name must not be empty")
		}
		if len(trimmed) > config.MaxNodeNameLength {
			return fmt.Errorf("name exceeds %d characters", config.MaxNodeNameLength)
		}
		if !nameNoSlash.MatchString(trimmed) {
			return fmt.Errorf("name cannot contain slashes")
		}
	}
	return nil
}

func entryOf(n *models.Node) models.Entry {
	return models.Entry{
		ID:        n.ID,
		Name:      n.Name,
		Type:      n.Type,
		ParentID:  n.ParentID,
		Path:      n.Path,
		SizeBytes: n.SizeBytes,
		UpdatedAt: n.UpdatedAt,
	}
}

// nest builds the nested sidebar tree from the flat entry list.
func nest(entries []models.Entry) []*models.TreeNode {
	byID := make(map[string]*models.TreeNode, len(entries))
	for i := range entries {
		byID[entries[i].ID] = &models.TreeNode{Entry: entries[i]}
	}

	var roots []*models.TreeNode
	for i := range entries {
		tn := byID[entries[i].ID]
		if tn.ParentID == nil {
			roots = append(roots, tn)
			continue
		}
		parent, ok := byID[*tn.ParentID]
		if !ok {
			// Parent tombstoned by a concurrent delete; surface at root
			// rather than dropping the node.
			roots = append(roots, tn)
			continue
		}
		parent.Children = append(parent.Children, tn)
	}

	sortLevel(roots)
	for _, tn := range byID {
		sortLevel(tn.Children)
	}
	return roots
}

// sortLevel orders siblings folders-first, then by name.
func sortLevel(nodes []*models.TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type == models.NodeTypeFolder
		}
		return nodes[i].Name < nodes[j].Name
	})
}
