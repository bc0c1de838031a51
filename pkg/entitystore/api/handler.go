// Package api exposes the entity store over HTTP using chi and render.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/entity-store/pkg/entitystore"
)

// Handler handles HTTP requests for the entity store using pkg/entitystore
type Handler struct {
	service entitystore.Service
}

// NewHandler creates a new entity store handler
func NewHandler(service entitystore.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the routes for the entity store
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/entities", h.CreateEntity)
	r.Get("/entities/{guid}", h.GetEntity)
	r.Put("/entities/{guid}", h.UpdateEntity)
	r.Delete("/entities/{guid}", h.DeleteEntity)
	r.Post("/entities/{guid}/enable", h.EnableEntity)
	r.Post("/entities/{guid}/disable", h.DisableEntity)

	// Routes for relationships
	r.Post("/relationships", h.AddRelationship)
	r.Delete("/relationships", h.RemoveRelationship)
	r.Get("/entities/{guid}/relationships", h.GetRelationships)

	// Routes for annotations
	r.Post("/entities/{guid}/annotations", h.CreateAnnotation)
	r.Get("/entities/{guid}/annotations", h.GetAnnotations)
	r.Delete("/annotations/{id}", h.DeleteAnnotation)

	// Routes for metadata
	r.Put("/entities/{guid}/metadata/{name}", h.SetMetadata)
	r.Get("/entities/{guid}/metadata/{name}", h.GetMetadata)
	r.Delete("/entities/{guid}/metadata/{name}", h.DeleteMetadata)

	// Routes for the activity river
	r.Get("/entities/{guid}/river", h.GetRiverItems)

	return r
}

// CreateEntityRequest is the request body for creating an entity
type CreateEntityRequest struct {
	Type          string          `json:"type"`
	Subtype       string          `json:"subtype"`
	OwnerGUID     int64           `json:"owner_guid"`
	ContainerGUID int64           `json:"container_guid"`
	AccessID      int             `json:"access_id"`
	Attrs         json.RawMessage `json:"attrs"`
}

// EntityResponse is the response body for an entity
type EntityResponse struct {
	GUID          int64                 `json:"guid"`
	Type          string                `json:"type"`
	Subtype       string                `json:"subtype,omitempty"`
	OwnerGUID     int64                 `json:"owner_guid"`
	ContainerGUID int64                 `json:"container_guid"`
	AccessID      int                   `json:"access_id"`
	TimeCreated   time.Time             `json:"time_created"`
	TimeUpdated   time.Time             `json:"time_updated"`
	Enabled       bool                  `json:"enabled"`
	Attrs         entitystore.Extension `json:"attrs"`
}

func toEntityResponse(e *entitystore.Entity) EntityResponse {
	return EntityResponse{
		GUID:          e.GUID,
		Type:          string(e.Type),
		Subtype:       e.Subtype,
		OwnerGUID:     e.OwnerGUID,
		ContainerGUID: e.ContainerGUID,
		AccessID:      e.AccessID,
		TimeCreated:   e.TimeCreated,
		TimeUpdated:   e.TimeUpdated,
		Enabled:       e.Enabled,
		Attrs:         e.Attrs,
	}
}

// decodeAttrs picks the extension struct matching the declared type before
// unmarshalling the attrs payload into it.
func decodeAttrs(typ string, raw json.RawMessage) (entitystore.Extension, error) {
	var attrs entitystore.Extension
	switch entitystore.EntityType(typ) {
	case entitystore.TypeObject:
		attrs = &entitystore.ObjectAttrs{}
	case entitystore.TypeUser:
		attrs = &entitystore.UserAttrs{}
	case entitystore.TypeGroup:
		attrs = &entitystore.GroupAttrs{}
	case entitystore.TypeSite:
		attrs = &entitystore.SiteAttrs{}
	default:
		return nil, entitystore.ErrInvalidArgument
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, attrs); err != nil {
			return nil, err
		}
	}
	return attrs, nil
}

// CreateEntity creates a new entity
func (h *Handler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	var req CreateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	attrs, err := decodeAttrs(req.Type, req.Attrs)
	if err != nil {
		slog.Error("Invalid entity type", "type", req.Type, "error", err)
		http.Error(w, "Invalid entity type", http.StatusBadRequest)
		return
	}

	e, err := h.service.CreateEntity(r.Context(), entitystore.CreateEntityRequest{
		Subtype:       req.Subtype,
		OwnerGUID:     req.OwnerGUID,
		ContainerGUID: req.ContainerGUID,
		AccessID:      req.AccessID,
		Attrs:         attrs,
	})
	if err != nil {
		slog.Error("Failed to create entity", "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Entity created", "guid", e.GUID, "type", req.Type)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toEntityResponse(e))
}

// GetEntity retrieves an entity by GUID
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}

	e, err := h.service.GetEntity(r.Context(), guid)
	if err != nil {
		slog.Error("Failed to get entity", "guid", guid, "error", err)
		writeError(w, err)
		return
	}

	render.JSON(w, r, toEntityResponse(e))
}

// UpdateEntityRequest is the request body for updating an entity
type UpdateEntityRequest struct {
	Subtype       string          `json:"subtype"`
	OwnerGUID     int64           `json:"owner_guid"`
	ContainerGUID int64           `json:"container_guid"`
	AccessID      int             `json:"access_id"`
	Attrs         json.RawMessage `json:"attrs"`
}

// UpdateEntity replaces an entity's mutable fields and extension attributes
func (h *Handler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}

	var req UpdateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e, err := h.service.GetEntity(r.Context(), guid)
	if err != nil {
		slog.Error("Failed to load entity for update", "guid", guid, "error", err)
		writeError(w, err)
		return
	}

	attrs, err := decodeAttrs(string(e.Type), req.Attrs)
	if err != nil {
		http.Error(w, "Invalid attrs", http.StatusBadRequest)
		return
	}

	e.Subtype = req.Subtype
	e.OwnerGUID = req.OwnerGUID
	e.ContainerGUID = req.ContainerGUID
	e.AccessID = req.AccessID
	e.Attrs = attrs

	if err := h.service.UpdateEntity(r.Context(), e); err != nil {
		slog.Error("Failed to update entity", "guid", guid, "error", err)
		writeError(w, err)
		return
	}

	render.JSON(w, r, toEntityResponse(e))
}

// DeleteEntity deletes an entity and its dependent rows
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}

	if err := h.service.DeleteEntity(r.Context(), guid); err != nil {
		slog.Error("Failed to delete entity", "guid", guid, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Entity deleted", "guid", guid)
	render.NoContent(w, r)
}

// EnableEntity re-enables a disabled entity
func (h *Handler) EnableEntity(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// DisableEntity hides an entity from default listings
func (h *Handler) DisableEntity(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *Handler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}

	var err error
	if enabled {
		err = h.service.EnableEntity(r.Context(), guid)
	} else {
		err = h.service.DisableEntity(r.Context(), guid)
	}
	if err != nil {
		slog.Error("Failed to toggle entity", "guid", guid, "enabled", enabled, "error", err)
		writeError(w, err)
		return
	}
	render.NoContent(w, r)
}

// RelationshipRequest is the request body for adding or removing a relationship
type RelationshipRequest struct {
	GUIDOne      int64  `json:"guid_one"`
	Relationship string `json:"relationship"`
	GUIDTwo      int64  `json:"guid_two"`
}

// RelationshipResponse is the response body for a relationship
type RelationshipResponse struct {
	ID           int64     `json:"id"`
	GUIDOne      int64     `json:"guid_one"`
	Relationship string    `json:"relationship"`
	GUIDTwo      int64     `json:"guid_two"`
	TimeCreated  time.Time `json:"time_created"`
}

func toRelationshipResponse(rel *entitystore.Relationship) RelationshipResponse {
	return RelationshipResponse{
		ID:           rel.ID,
		GUIDOne:      rel.GUIDOne,
		Relationship: rel.Relationship,
		GUIDTwo:      rel.GUIDTwo,
		TimeCreated:  rel.TimeCreated,
	}
}

// AddRelationship creates a directed relationship between two entities
func (h *Handler) AddRelationship(w http.ResponseWriter, r *http.Request) {
	var req RelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rel, err := h.service.AddRelationship(r.Context(), req.GUIDOne, req.Relationship, req.GUIDTwo)
	if err != nil {
		slog.Error("Failed to add relationship", "relationship", req.Relationship, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Relationship added", "id", rel.ID, "relationship", rel.Relationship)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toRelationshipResponse(rel))
}

// RemoveRelationship removes a single relationship triple
func (h *Handler) RemoveRelationship(w http.ResponseWriter, r *http.Request) {
	var req RelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.RemoveRelationship(r.Context(), req.GUIDOne, req.Relationship, req.GUIDTwo); err != nil {
		slog.Error("Failed to remove relationship", "relationship", req.Relationship, "error", err)
		writeError(w, err)
		return
	}
	render.NoContent(w, r)
}

// GetRelationships lists an entity's relationships. Pass ?inverse=true for
// edges pointing at the entity.
func (h *Handler) GetRelationships(w http.ResponseWriter, r *http.Request) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}
	inverse := r.URL.Query().Get("inverse") == "true"

	rels, err := h.service.GetRelationships(r.Context(), guid, inverse)
	if err != nil {
		slog.Error("Failed to list relationships", "guid", guid, "error", err)
		writeError(w, err)
		return
	}

	resp := make([]RelationshipResponse, 0, len(rels))
	for _, rel := range rels {
		resp = append(resp, toRelationshipResponse(rel))
	}
	render.JSON(w, r, resp)
}

// AnnotationRequest is the request body for creating an annotation
type AnnotationRequest struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	ValueType string `json:"value_type,omitempty"`
	OwnerGUID int64  `json:"owner_guid"`
	AccessID  int    `json:"access_id"`
}

// ExtenderResponse is the response body for an annotation or metadata value
type ExtenderResponse struct {
	ID          int64     `json:"id"`
	EntityGUID  int64     `json:"entity_guid"`
	Name        string    `json:"name"`
	Value       string    `json:"value"`
	ValueType   string    `json:"value_type"`
	OwnerGUID   int64     `json:"owner_guid"`
	AccessID    int       `json:"access_id"`
	TimeCreated time.Time `json:"time_created"`
	Enabled     bool      `json:"enabled"`
}

func toExtenderResponse(x entitystore.Extender) ExtenderResponse {
	return ExtenderResponse{
		ID:          x.ID,
		EntityGUID:  x.EntityGUID,
		Name:        x.Name,
		Value:       x.Value,
		ValueType:   string(x.ValueType),
		OwnerGUID:   x.OwnerGUID,
		AccessID:    x.AccessID,
		TimeCreated: x.TimeCreated,
		Enabled:     x.Enabled,
	}
}

// CreateAnnotation attaches a new annotation to an entity
func (h *Handler) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}

	var req AnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a := &entitystore.Annotation{Extender: entitystore.Extender{
		EntityGUID: guid,
		Name:       req.Name,
		Value:      req.Value,
		ValueType:  entitystore.ValueType(req.ValueType),
		OwnerGUID:  req.OwnerGUID,
		AccessID:   req.AccessID,
	}}
	if err := h.service.SaveAnnotation(r.Context(), a); err != nil {
		slog.Error("Failed to save annotation", "entity_guid", guid, "name", req.Name, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Annotation created", "id", a.ID, "entity_guid", guid, "name", a.Name)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toExtenderResponse(a.Extender))
}

// GetAnnotations lists an entity's annotations, optionally filtered by ?name=
func (h *Handler) GetAnnotations(w http.ResponseWriter, r *http.Request) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}

	anns, err := h.service.GetAnnotations(r.Context(), guid, r.URL.Query().Get("name"))
	if err != nil {
		slog.Error("Failed to list annotations", "entity_guid", guid, "error", err)
		writeError(w, err)
		return
	}

	resp := make([]ExtenderResponse, 0, len(anns))
	for _, a := range anns {
		resp = append(resp, toExtenderResponse(a.Extender))
	}
	render.JSON(w, r, resp)
}

// DeleteAnnotation removes an annotation by id
func (h *Handler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteAnnotation(r.Context(), id); err != nil {
		slog.Error("Failed to delete annotation", "id", id, "error", err)
		writeError(w, err)
		return
	}
	render.NoContent(w, r)
}

// MetadataRequest is the request body for setting a metadata value
type MetadataRequest struct {
	Value     string `json:"value"`
	ValueType string `json:"value_type,omitempty"`
	OwnerGUID int64  `json:"owner_guid"`
	AccessID  int    `json:"access_id"`
}

// SetMetadata creates or replaces the metadata value under a name
func (h *Handler) SetMetadata(w http.ResponseWriter, r *http.Request) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	var req MetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m := &entitystore.Metadata{Extender: entitystore.Extender{
		EntityGUID: guid,
		Name:       name,
		Value:      req.Value,
		ValueType:  entitystore.ValueType(req.ValueType),
		OwnerGUID:  req.OwnerGUID,
		AccessID:   req.AccessID,
	}}
	if err := h.service.SaveMetadata(r.Context(), m); err != nil {
		slog.Error("Failed to save metadata", "entity_guid", guid, "name", name, "error", err)
		writeError(w, err)
		return
	}

	render.JSON(w, r, toExtenderResponse(m.Extender))
}

// GetMetadata retrieves the metadata value under a name
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	m, err := h.service.GetMetadata(r.Context(), guid, name)
	if err != nil {
		slog.Error("Failed to get metadata", "entity_guid", guid, "name", name, "error", err)
		writeError(w, err)
		return
	}
	render.JSON(w, r, toExtenderResponse(m.Extender))
}

// DeleteMetadata removes the metadata value under a name
func (h *Handler) DeleteMetadata(w http.ResponseWriter, r *http.Request) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	if err := h.service.DeleteMetadata(r.Context(), guid, name); err != nil {
		slog.Error("Failed to delete metadata", "entity_guid", guid, "name", name, "error", err)
		writeError(w, err)
		return
	}
	render.NoContent(w, r)
}

// RiverItemResponse is the response body for an activity river item
type RiverItemResponse struct {
	ID           int64     `json:"id"`
	ActionType   string    `json:"action_type"`
	SubjectGUID  int64     `json:"subject_guid"`
	ObjectGUID   int64     `json:"object_guid,omitempty"`
	AnnotationID int64     `json:"annotation_id,omitempty"`
	Posted       time.Time `json:"posted"`
}

// GetRiverItems lists the activity river for a subject entity
func (h *Handler) GetRiverItems(w http.ResponseWriter, r *http.Request) {
	guid, ok := h.guidParam(w, r, "guid")
	if !ok {
		return
	}

	items, err := h.service.GetRiverItems(r.Context(), guid)
	if err != nil {
		slog.Error("Failed to list river items", "subject_guid", guid, "error", err)
		writeError(w, err)
		return
	}

	resp := make([]RiverItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, RiverItemResponse{
			ID:           it.ID,
			ActionType:   it.ActionType,
			SubjectGUID:  it.SubjectGUID,
			ObjectGUID:   it.ObjectGUID,
			AnnotationID: it.AnnotationID,
			Posted:       it.Posted,
		})
	}
	render.JSON(w, r, resp)
}

func (h *Handler) guidParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	guid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || guid <= 0 {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return guid, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entitystore.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, entitystore.ErrDuplicateRelationship), errors.Is(err, entitystore.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, entitystore.ErrVetoed):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, entitystore.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
