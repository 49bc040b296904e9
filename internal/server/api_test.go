package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/store"
)

func newTestAPI(t *testing.T) (*APIHandler, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	return NewAPIHandler(s, time.Second), s
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestAPIListContainersEmpty(t *testing.T) {
	h, _ := newTestAPI(t)

	w := doJSON(t, h, http.MethodGet, "/api/lists", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"value":[]}`, w.Body.String())
}

func TestAPICreateAndGetContainer(t *testing.T) {
	h, s := newTestAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/lists", `{"Title":"Announcements","Description":"News","BaseTemplate":100}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	c, err := s.GetContainer(context.Background(), "Announcements")
	require.NoError(t, err)
	assert.Equal(t, "News", c.Description)
	assert.Equal(t, store.GenericListTemplate, c.Template)

	w = doJSON(t, h, http.MethodGet, "/api/lists/Announcements", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got store.Container
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Announcements", got.Name)

	w = doJSON(t, h, http.MethodGet, "/api/lists", "")
	assert.JSONEq(t, `{"value":[{"Title":"Announcements","Description":"News","BaseTemplate":100}]}`, w.Body.String())
}

func TestAPICreateDefaultsTemplate(t *testing.T) {
	h, s := newTestAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/lists", `{"Title":"FAQ"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	c, err := s.GetContainer(context.Background(), "FAQ")
	require.NoError(t, err)
	assert.Equal(t, store.GenericListTemplate, c.Template)
}

func TestAPIErrorStatuses(t *testing.T) {
	h, s := newTestAPI(t)
	require.NoError(t, s.CreateContainer(context.Background(), "Existing", "", store.GenericListTemplate))

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{name: "missing container", method: http.MethodGet, target: "/api/lists/Nope", status: http.StatusNotFound},
		{name: "items of missing container", method: http.MethodGet, target: "/api/lists/Nope/items", status: http.StatusNotFound},
		{name: "duplicate container", method: http.MethodPost, target: "/api/lists", body: `{"Title":"Existing"}`, status: http.StatusConflict},
		{name: "blank name", method: http.MethodPost, target: "/api/lists", body: `{"Title":"  "}`, status: http.StatusBadRequest},
		{name: "invalid json", method: http.MethodPost, target: "/api/lists", body: `{not json`, status: http.StatusBadRequest},
		{name: "empty item title", method: http.MethodPost, target: "/api/lists/Existing/items", body: `{"Title":""}`, status: http.StatusBadRequest},
		{name: "field on missing container", method: http.MethodPost, target: "/api/lists/Nope/fields", body: `{"Title":"Description"}`, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decodeError(t, w))
		})
	}
}

func TestAPIItems(t *testing.T) {
	h, s := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, s.CreateContainer(ctx, "Announcements", "", store.GenericListTemplate))

	w := doJSON(t, h, http.MethodGet, "/api/lists/Announcements/items", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"value":[]}`, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/api/lists/Announcements/items", `{"Title":"Welcome","Description":"<p>Hi</p>"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"Title":"Welcome","Description":"<p>Hi</p>"}`, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/api/lists/Announcements/items", `{"Title":"Update","Description":"<p>New</p>"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	items, err := s.ListItems(ctx, "Announcements")
	require.NoError(t, err)
	assert.Equal(t, []accordion.Item{
		{Title: "Welcome", Description: "<p>Hi</p>"},
		{Title: "Update", Description: "<p>New</p>"},
	}, items)

	w = doJSON(t, h, http.MethodGet, "/api/lists/Announcements/items", "")
	assert.JSONEq(t, `{"value":[{"Title":"Welcome","Description":"<p>Hi</p>"},{"Title":"Update","Description":"<p>New</p>"}]}`, w.Body.String())
}

func TestAPIAddField(t *testing.T) {
	h, s := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, s.CreateContainer(ctx, "FAQ", "", store.GenericListTemplate))

	w := doJSON(t, h, http.MethodPost, "/api/lists/FAQ/fields", `{"Title":"Description","RichText":false}`)
	require.Equal(t, http.StatusCreated, w.Code)

	c, err := s.GetContainer(ctx, "FAQ")
	require.NoError(t, err)
	assert.Equal(t, []store.Field{{Name: "Description", RichText: false}}, c.Fields)
}

func TestAPIEscapedName(t *testing.T) {
	h, s := newTestAPI(t)
	require.NoError(t, s.CreateContainer(context.Background(), "Team FAQ?", "", store.GenericListTemplate))

	w := doJSON(t, h, http.MethodGet, "/api/lists/Team%20FAQ%3F", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got store.Container
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Team FAQ?", got.Name)
}

func TestAPIBodyTooLarge(t *testing.T) {
	h, s := newTestAPI(t)
	require.NoError(t, s.CreateContainer(context.Background(), "Big", "", store.GenericListTemplate))

	body := `{"Title":"x","Description":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	w := doJSON(t, h, http.MethodPost, "/api/lists/Big/items", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIMethodNotAllowed(t *testing.T) {
	h, _ := newTestAPI(t)
	w := doJSON(t, h, http.MethodDelete, "/api/lists", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind store.Kind
		want int
	}{
		{store.KindNotFound, http.StatusNotFound},
		{store.KindConflict, http.StatusConflict},
		{store.KindValidation, http.StatusBadRequest},
		{store.KindUnavailable, http.StatusServiceUnavailable},
		{store.KindStore, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}

// The rest backend and this handler speak the same wire format.
func TestAPIServesRESTStore(t *testing.T) {
	h, _ := newTestAPI(t)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	rs, err := store.NewRESTStore(srv.URL+"/api", store.RESTOptions{AllowPrivate: true})
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	ctx := context.Background()

	require.NoError(t, rs.CreateContainer(ctx, "Announcements", "List created by accordion widget", store.GenericListTemplate))
	require.NoError(t, rs.AddField(ctx, "Announcements", store.Field{Name: "Description"}))

	_, err = rs.GetContainer(ctx, "Missing")
	assert.Equal(t, store.KindNotFound, store.Classify(err))

	_, err = rs.AddItem(ctx, "Announcements", accordion.Item{Title: "Welcome", Description: "<p>Hi</p>"})
	require.NoError(t, err)
	items, err := rs.ListItems(ctx, "Announcements")
	require.NoError(t, err)
	assert.Equal(t, []accordion.Item{{Title: "Welcome", Description: "<p>Hi</p>"}}, items)

	err = rs.CreateContainer(ctx, "Announcements", "", store.GenericListTemplate)
	assert.Equal(t, store.KindConflict, store.Classify(err))
}
