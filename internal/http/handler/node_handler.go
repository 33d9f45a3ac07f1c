package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"clinic-federation-service/internal/domain"
	"clinic-federation-service/internal/http/middleware"
	"clinic-federation-service/internal/http/response"
	"clinic-federation-service/internal/observability"
	"clinic-federation-service/internal/repository"
	"clinic-federation-service/internal/service"
)

type NodeHandler struct {
	lifecycleSvc *service.NodeLifecycleService
	storageSvc   service.StorageService
}

func NewNodeHandler(lifecycleSvc *service.NodeLifecycleService, storageSvc service.StorageService) *NodeHandler {
	return &NodeHandler{
		lifecycleSvc: lifecycleSvc,
		storageSvc:   storageSvc,
	}
}

type nodeRequest struct {
	LegalID        string `json:"legal_id"`
	Name           string `json:"name"`
	Contact        string `json:"contact"`
	Department     string `json:"department"`
	Locality       string `json:"locality"`
	Address        string `json:"address"`
	URL            string `json:"url"`
	RemoteBaseURL  string `json:"remote_base_url"`
	RemoteUser     string `json:"remote_user"`
	RemotePassword string `json:"remote_password"`
}

func (req *nodeRequest) apply(node *domain.PeripheralNode) {
	node.LegalID = strings.TrimSpace(req.LegalID)
	node.Name = strings.TrimSpace(req.Name)
	node.Contact = req.Contact
	node.Department = req.Department
	node.Locality = req.Locality
	node.Address = req.Address
	node.URL = req.URL
	node.RemoteBaseURL = req.RemoteBaseURL
	node.RemoteUser = req.RemoteUser
	node.RemotePassword = req.RemotePassword
}

func (h *NodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.LegalID) == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "legal_id is required", nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "name is required", nil)
		return
	}

	var node domain.PeripheralNode
	req.apply(&node)

	created, err := h.lifecycleSvc.CreateAndNotify(r.Context(), &node)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateLegalID) {
			response.Error(w, r, http.StatusConflict, "CONFLICT", "legal_id already registered", nil)
			return
		}
		if errors.Is(err, service.ErrBlankLegalID) {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "legal_id is required", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create node", nil)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "node.create",
		ActorUserID: actorFromContext(r),
		TargetType:  "peripheral_node",
		TargetID:    strconv.FormatUint(uint64(created.ID), 10),
		Action:      "create",
		Outcome:     "success",
		Reason:      "node_registered",
	}, "legal_id", created.LegalID)
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"node":             created,
		"activation_url":   created.ActivationURL,
		"token_expires_at": created.TokenExpiresAt,
	})
}

func (h *NodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeIDParam(w, r)
	if !ok {
		return
	}
	node, err := h.lifecycleSvc.GetNode(id)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "node not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load node", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, node)
}

func (h *NodeHandler) List(w http.ResponseWriter, r *http.Request) {
	page := repository.PageRequest{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
	}
	result, err := h.lifecycleSvc.ListNodes(page)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list nodes", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

func (h *NodeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeIDParam(w, r)
	if !ok {
		return
	}
	node, err := h.lifecycleSvc.GetNode(id)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "node not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load node", nil)
		return
	}

	var req nodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.LegalID) == "" {
		req.LegalID = node.LegalID
	}
	req.apply(node)

	updated, err := h.lifecycleSvc.UpdateAndNotify(r.Context(), node)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateLegalID) {
			response.Error(w, r, http.StatusConflict, "CONFLICT", "legal_id already registered", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update node", nil)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "node.update",
		ActorUserID: actorFromContext(r),
		TargetType:  "peripheral_node",
		TargetID:    strconv.FormatUint(uint64(updated.ID), 10),
		Action:      "update",
		Outcome:     "success",
		Reason:      "node_updated",
	})
	response.JSON(w, r, http.StatusOK, updated)
}

func (h *NodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeIDParam(w, r)
	if !ok {
		return
	}
	if err := h.lifecycleSvc.DeleteAndNotify(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "node not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to delete node", nil)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "node.delete",
		ActorUserID: actorFromContext(r),
		TargetType:  "peripheral_node",
		TargetID:    strconv.FormatUint(uint64(id), 10),
		Action:      "delete",
		Outcome:     "success",
		Reason:      "node_deactivated",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{
		"id":    id,
		"state": domain.NodeStateInactive,
	})
}

// Resync pushes the node's current record to the peripheral side. Unlike the
// best-effort sync piggybacked on writes, a failed resync is reported.
func (h *NodeHandler) Resync(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}

	if err := h.lifecycleSvc.NotifyPeripheralNode(r.Context(), id, req.Action); err != nil {
		switch {
		case errors.Is(err, repository.ErrNodeNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "node not found", nil)
		case errors.Is(err, service.ErrRemoteBaseURLMissing):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "node has no remote base url", nil)
		case errors.Is(err, service.ErrUnknownResyncAction):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unknown resync action", nil)
		case errors.Is(err, service.ErrRemoteSyncFailed):
			response.Error(w, r, http.StatusBadGateway, "REMOTE_SYNC_FAILED", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to resync node", nil)
		}
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "node.resync",
		ActorUserID: actorFromContext(r),
		TargetType:  "peripheral_node",
		TargetID:    strconv.FormatUint(uint64(id), 10),
		Action:      req.Action,
		Outcome:     "success",
		Reason:      "remote_synced",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{
		"id":     id,
		"action": req.Action,
		"synced": true,
	})
}

func (h *NodeHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	state := domain.NodeState(strings.ToUpper(strings.TrimSpace(req.State)))
	switch state {
	case domain.NodeStatePending, domain.NodeStateActive, domain.NodeStateInactive:
	default:
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "state must be PENDING, ACTIVE, or INACTIVE", nil)
		return
	}

	if err := h.lifecycleSvc.UpdateState(r.Context(), id, state); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update state", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"id":    id,
		"state": state,
	})
}

func (h *NodeHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeIDParam(w, r)
	if !ok {
		return
	}
	if err := h.lifecycleSvc.Purge(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNodeNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "node not found", nil)
		case errors.Is(err, repository.ErrNodeNotPurgeable):
			response.Error(w, r, http.StatusConflict, "CONFLICT", "only inactive nodes can be purged", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to purge node", nil)
		}
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "node.purge",
		ActorUserID: actorFromContext(r),
		TargetType:  "peripheral_node",
		TargetID:    strconv.FormatUint(uint64(id), 10),
		Action:      "purge",
		Outcome:     "success",
		Reason:      "node_purged",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{
		"id":     id,
		"purged": true,
	})
}

func (h *NodeHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeIDParam(w, r)
	if !ok {
		return
	}
	node, err := h.lifecycleSvc.GetNode(id)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "node not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load node", nil)
		return
	}

	if err := r.ParseMultipartForm(4 << 20); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "failed to parse multipart form", nil)
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "logo file is required", nil)
		return
	}
	defer func() { _ = file.Close() }()

	objectKey, err := h.storageSvc.UploadLogo(r.Context(), id, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, service.ErrFileTooBig) {
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "file size exceeds 2MB limit", nil)
			return
		}
		if errors.Is(err, service.ErrInvalidFileType) {
			response.Error(w, r, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "only JPEG and PNG images are allowed", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to upload logo", nil)
		return
	}

	previousKey := node.LogoObjectKey
	node.LogoObjectKey = objectKey
	if _, err := h.lifecycleSvc.UpdateAndNotify(r.Context(), node); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to persist logo reference", nil)
		return
	}
	if previousKey != "" {
		_ = h.storageSvc.DeleteLogo(r.Context(), previousKey)
	}

	logoURL, err := h.storageSvc.GenerateLogoURL(r.Context(), objectKey)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to generate logo URL", nil)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "node.logo.upload",
		ActorUserID: actorFromContext(r),
		TargetType:  "peripheral_node",
		TargetID:    strconv.FormatUint(uint64(id), 10),
		Action:      "upload_logo",
		Outcome:     "success",
		Reason:      "logo_uploaded",
	}, "object_key", objectKey, "file_size", header.Size)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"object_key": objectKey,
		"logo_url":   logoURL,
	})
}

func nodeIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "node_id")
	id64, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id64 == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid node id", nil)
		return 0, false
	}
	return uint(id64), true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func actorFromContext(r *http.Request) string {
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		return observability.ActorUserID(userID)
	}
	return "anonymous"
}
