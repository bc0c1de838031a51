package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/entity-store/pkg/entitystore"
	"github.com/tendant/entity-store/pkg/entitystore/store/sqldb"
)

// setupHandlerTest creates a Handler over an in-memory SQLite store
func setupHandlerTest(t *testing.T) (*Handler, entitystore.Service) {
	db, err := sqldb.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	service, err := entitystore.New(entitystore.WithDatabase(db))
	require.NoError(t, err)

	return NewHandler(service), service
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateEntity_Success(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	router := handler.Routes()

	w := postJSON(t, router, "/entities", CreateEntityRequest{
		Type:    "object",
		Subtype: "blog",
		Attrs:   json.RawMessage(`{"title":"hello","description":"world"}`),
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp EntityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Greater(t, resp.GUID, int64(0))
	assert.Equal(t, "object", resp.Type)
	assert.Equal(t, "blog", resp.Subtype)
	assert.True(t, resp.Enabled)
}

func TestHandler_CreateEntity_InvalidType(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	router := handler.Routes()

	w := postJSON(t, router, "/entities", CreateEntityRequest{Type: "widget"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetEntity(t *testing.T) {
	handler, service := setupHandlerTest(t)
	router := handler.Routes()

	e, err := service.CreateEntity(context.Background(), entitystore.CreateEntityRequest{
		Attrs: &entitystore.UserAttrs{Name: "Alice", Username: "alice"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/entities/%d", e.GUID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp EntityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, e.GUID, resp.GUID)
	assert.Equal(t, "user", resp.Type)
}

func TestHandler_GetEntity_NotFound(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodGet, "/entities/9999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_AddRelationship_DuplicateConflict(t *testing.T) {
	handler, service := setupHandlerTest(t)
	router := handler.Routes()
	ctx := context.Background()

	a, err := service.CreateEntity(ctx, entitystore.CreateEntityRequest{
		Attrs: &entitystore.UserAttrs{Username: "a"},
	})
	require.NoError(t, err)
	b, err := service.CreateEntity(ctx, entitystore.CreateEntityRequest{
		Attrs: &entitystore.UserAttrs{Username: "b"},
	})
	require.NoError(t, err)

	body := RelationshipRequest{GUIDOne: a.GUID, Relationship: "friend", GUIDTwo: b.GUID}

	w := postJSON(t, router, "/relationships", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp RelationshipResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Greater(t, resp.ID, int64(0))

	w = postJSON(t, router, "/relationships", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_Annotations(t *testing.T) {
	handler, service := setupHandlerTest(t)
	router := handler.Routes()

	post, err := service.CreateEntity(context.Background(), entitystore.CreateEntityRequest{
		Attrs: &entitystore.ObjectAttrs{Title: "post"},
	})
	require.NoError(t, err)

	w := postJSON(t, router, fmt.Sprintf("/entities/%d/annotations", post.GUID), AnnotationRequest{
		Name:  "comment",
		Value: "nice one",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/entities/%d/annotations?name=comment", post.GUID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var anns []ExtenderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &anns))
	require.Len(t, anns, 1)
	assert.Equal(t, "nice one", anns[0].Value)
}

func TestHandler_Metadata(t *testing.T) {
	handler, service := setupHandlerTest(t)
	router := handler.Routes()

	post, err := service.CreateEntity(context.Background(), entitystore.CreateEntityRequest{
		Attrs: &entitystore.ObjectAttrs{Title: "post"},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(MetadataRequest{Value: "blue"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/entities/%d/metadata/color", post.GUID), bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/entities/%d/metadata/color", post.GUID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ExtenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "blue", resp.Value)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/entities/%d/metadata/color", post.GUID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_DeleteEntity(t *testing.T) {
	handler, service := setupHandlerTest(t)
	router := handler.Routes()

	e, err := service.CreateEntity(context.Background(), entitystore.CreateEntityRequest{
		Attrs: &entitystore.ObjectAttrs{Title: "doomed"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/entities/%d", e.GUID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	_, err = service.GetEntity(context.Background(), e.GUID)
	assert.ErrorIs(t, err, entitystore.ErrNotFound)
}
