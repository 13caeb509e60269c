package task_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/cerr"
)

type changeRecorder struct {
	changes []task.Change
	ids     []string
}

func (r *changeRecorder) TaskChanged(_ context.Context, change task.Change, id string) {
	r.changes = append(r.changes, change)
	r.ids = append(r.ids, id)
}

func newTestServer(t *testing.T) (*task.Store, *changeRecorder, http.Handler) {
	t.Helper()
	store, _ := newStore(t)
	rec := &changeRecorder{}
	r := chi.NewRouter()
	r.Use(cerr.NewConvertConnectErrorChiMiddleware())
	r.Route("/api/tasks", task.NewServer(store, rec).Routes)
	return store, rec, r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestServer_CreateAndGet(t *testing.T) {
	_, rec, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/tasks", `{"text":"  Call the bank ","priority":"high","category":"business"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[task.Task](t, w)
	assert.Equal(t, "Call the bank", created.Text)
	assert.Equal(t, task.PriorityHigh, created.Priority)
	assert.Equal(t, task.CategoryBusiness, created.Category)
	assert.Equal(t, []task.Change{task.ChangeAdded}, rec.changes)

	w = do(t, h, http.MethodGet, "/api/tasks/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[task.Task](t, w).ID)
}

func TestServer_CreateRejectsBlankText(t *testing.T) {
	_, rec, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/tasks", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "invalid_argument", body["code"])
	assert.Empty(t, rec.changes)

	w = do(t, h, http.MethodPost, "/api/tasks", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_List(t *testing.T) {
	store, _, h := newTestServer(t)
	ctx := context.Background()
	_, err := store.Add(ctx, "Invoice client", task.PriorityHigh, task.CategoryClient)
	require.NoError(t, err)
	done, err := store.Add(ctx, "Water plants", task.PriorityLow, task.CategoryPersonal)
	require.NoError(t, err)
	require.NoError(t, store.Toggle(ctx, done))

	type listResponse struct {
		Tasks []task.Task `json:"tasks"`
	}

	all := decode[listResponse](t, do(t, h, http.MethodGet, "/api/tasks", ""))
	assert.Len(t, all.Tasks, 2)

	pending := decode[listResponse](t, do(t, h, http.MethodGet, "/api/tasks?status=pending", ""))
	require.Len(t, pending.Tasks, 1)
	assert.Equal(t, "Invoice client", pending.Tasks[0].Text)

	personal := decode[listResponse](t, do(t, h, http.MethodGet, "/api/tasks?category=personal&status=completed", ""))
	require.Len(t, personal.Tasks, 1)
	assert.Equal(t, "Water plants", personal.Tasks[0].Text)

	none := decode[listResponse](t, do(t, h, http.MethodGet, "/api/tasks?priority=medium", ""))
	assert.NotNil(t, none.Tasks)
	assert.Empty(t, none.Tasks)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/tasks?priority=urgent", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/tasks?status=archived", "").Code)
}

func TestServer_UpdateToggleDelete(t *testing.T) {
	store, rec, h := newTestServer(t)
	id, err := store.Add(context.Background(), "Draft proposal", task.PriorityMedium, task.CategoryNone)
	require.NoError(t, err)

	w := do(t, h, http.MethodPatch, "/api/tasks/"+id, `{"priority":"high","category":"client"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[task.Task](t, w)
	assert.Equal(t, task.PriorityHigh, updated.Priority)
	assert.Equal(t, task.CategoryClient, updated.Category)

	w = do(t, h, http.MethodPatch, "/api/tasks/"+id, `{"completed":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode[task.Task](t, w).CompletedAt)

	w = do(t, h, http.MethodPost, "/api/tasks/"+id+"/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[task.Task](t, w).Completed)

	w = do(t, h, http.MethodDelete, "/api/tasks/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.List())

	assert.Equal(t, []task.Change{task.ChangeUpdated, task.ChangeCompleted, task.ChangeUpdated, task.ChangeDeleted}, rec.changes)
}

func TestServer_UnknownIDIsNotFound(t *testing.T) {
	_, rec, h := newTestServer(t)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/tasks/missing", ""},
		{http.MethodPatch, "/api/tasks/missing", `{"text":"x"}`},
		{http.MethodPost, "/api/tasks/missing/toggle", ""},
		{http.MethodDelete, "/api/tasks/missing", ""},
	} {
		w := do(t, h, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
	}
	assert.Empty(t, rec.changes)
}

func TestServer_ClearStatsAndNext(t *testing.T) {
	store, rec, h := newTestServer(t)
	ctx := context.Background()

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/tasks/next", "").Code)

	low, err := store.Add(ctx, "Tidy desk", task.PriorityLow, task.CategoryNone)
	require.NoError(t, err)
	_, err = store.Add(ctx, "Send invoice", task.PriorityHigh, task.CategoryClient)
	require.NoError(t, err)
	require.NoError(t, store.Toggle(ctx, low))

	stats := decode[task.Stats](t, do(t, h, http.MethodGet, "/api/tasks/stats", ""))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Completed)

	next := decode[task.Task](t, do(t, h, http.MethodGet, "/api/tasks/next", ""))
	assert.Equal(t, "Send invoice", next.Text)

	w := do(t, h, http.MethodDelete, "/api/tasks?completed=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[map[string]int](t, w)["removed"])
	assert.Len(t, store.List(), 1)

	w = do(t, h, http.MethodDelete, "/api/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[map[string]int](t, w)["removed"])
	assert.Empty(t, store.List())
	assert.Equal(t, []task.Change{task.ChangeDeleted, task.ChangeCleared}, rec.changes)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/api/tasks?completed=maybe", "").Code)
}
