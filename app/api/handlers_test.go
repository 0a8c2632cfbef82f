package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thorntonevents/ingest/app/database"
	"github.com/thorntonevents/ingest/app/sources"
)

type stubRunner struct {
	triggered int
	err       error
}

func (s *stubRunner) TriggerRun() error {
	if s.err != nil {
		return s.err
	}
	s.triggered++
	return nil
}

type testEnv struct {
	router      *gin.Engine
	db          *database.DB
	eventRepo   *database.EventRepo
	dealRepo    *database.DealRepo
	articleRepo *database.ArticleRepo
	runner      *stubRunner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))

	env := &testEnv{
		db:          db,
		eventRepo:   database.NewEventRepository(db),
		dealRepo:    database.NewDealRepository(db),
		articleRepo: database.NewArticleRepository(db),
		runner:      &stubRunner{},
	}

	handler := NewHandler(sources.NewConfigCache(t.TempDir()),
		env.eventRepo, env.dealRepo, env.articleRepo,
		database.NewSourceRepository(db), env.runner, "https://deals.example.org")
	env.router = NewServer(handler, "secret-key")

	return env
}

func (env *testEnv) request(t *testing.T, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Contains(t, body, "timestamp")
	assert.EqualValues(t, 0, body["events"])
}

func TestListEvents(t *testing.T) {
	env := newTestEnv(t)

	future := time.Now().UTC().Add(48 * time.Hour)
	require.NoError(t, env.eventRepo.Upsert(database.Event{
		ID: "evt-1", SourceName: "Anythink", SourceID: "a-1",
		Title: "Storytime", StartTime: future, Status: "active",
	}))
	require.NoError(t, env.eventRepo.Upsert(database.Event{
		ID: "evt-2", SourceName: "Anythink", SourceID: "a-2",
		Title: "Old Event", StartTime: time.Now().UTC().Add(-48 * time.Hour), Status: "active",
	}))

	w := env.request(t, http.MethodGet, "/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.EqualValues(t, 1, body["count"], "past events are not listed")
}

func TestListDealsDisplayFlags(t *testing.T) {
	env := newTestEnv(t)

	past := time.Now().UTC().Add(-24 * time.Hour)
	soon := time.Now().UTC().Add(24 * time.Hour)
	far := time.Now().UTC().Add(30 * 24 * time.Hour)

	for slug, end := range map[string]*time.Time{
		"expired-deal":   &past,
		"closing-deal":   &soon,
		"ongoing-deal":   &far,
		"unbounded-deal": nil,
	} {
		require.NoError(t, env.dealRepo.Upsert(database.Deal{
			Slug: slug, Title: slug, BusinessName: "Biz",
			DealType: "discount", Status: "active", EndDate: end,
		}))
	}

	w := env.request(t, http.MethodGet, "/deals", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.EqualValues(t, 4, body["count"], "expired-by-date deals still list while status is active")

	flags := map[string]map[string]interface{}{}
	for _, raw := range body["deals"].([]interface{}) {
		deal := raw.(map[string]interface{})
		flags[deal["slug"].(string)] = deal
	}

	assert.Equal(t, true, flags["expired-deal"]["expired"])
	assert.Equal(t, false, flags["closing-deal"]["expired"])
	assert.Equal(t, true, flags["closing-deal"]["expiring_soon"])
	assert.Equal(t, false, flags["ongoing-deal"]["expiring_soon"])
	assert.NotContains(t, flags["unbounded-deal"], "expired")
}

func TestArticleLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/articles", "secret-key", map[string]interface{}{
		"title":   "Fall Events Guide",
		"content": "Everything happening this fall.",
		"tags":    []string{"guide", "fall"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "fall-events-guide", decodeBody(t, w)["slug"])

	// Draft articles are not publicly visible.
	w = env.request(t, http.MethodGet, "/articles/fall-events-guide", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.request(t, http.MethodPost, "/api/articles/fall-events-guide/publish", "secret-key", nil)
	require.Equal(t, http.StatusOK, w.Code)

	for range 3 {
		w = env.request(t, http.MethodGet, "/articles/fall-events-guide", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	article, err := env.articleRepo.GetBySlug("fall-events-guide")
	require.NoError(t, err)
	assert.EqualValues(t, 3, article.ViewCount)

	w = env.request(t, http.MethodGet, "/articles", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["count"])
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/run", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/run", "wrong-key", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/run", "secret-key", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, env.runner.triggered)
}

func TestTriggerRunConflict(t *testing.T) {
	env := newTestEnv(t)
	env.runner.err = assert.AnError

	w := env.request(t, http.MethodPost, "/api/run", "secret-key", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCleanupDeals(t *testing.T) {
	env := newTestEnv(t)

	past := time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, env.dealRepo.Upsert(database.Deal{
		Slug: "stale-deal", Title: "Stale", BusinessName: "Biz",
		DealType: "discount", Status: "active", EndDate: &past,
		URL: "https://deals.example.org",
	}))
	require.NoError(t, env.dealRepo.Upsert(database.Deal{
		Slug: "other-stale-deal", Title: "Other", BusinessName: "Biz",
		DealType: "discount", Status: "active", EndDate: &past,
		URL: "https://elsewhere.example.org",
	}))

	// No body: falls back to the configured deals source URL.
	w := env.request(t, http.MethodPost, "/api/deals/cleanup", "secret-key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["deleted"])

	deal, err := env.dealRepo.GetBySlug("other-stale-deal")
	require.NoError(t, err)
	assert.NotNil(t, deal, "cleanup is scoped to one source URL")
}

func TestUpdateDealStatus(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.dealRepo.Upsert(database.Deal{
		Slug: "pizza-deal", Title: "Pizza", BusinessName: "Marco's",
		DealType: "discount", Status: "active",
	}))

	w := env.request(t, http.MethodPatch, "/api/deals/pizza-deal/status", "secret-key",
		map[string]string{"status": "paused"})
	require.Equal(t, http.StatusOK, w.Code)

	deal, err := env.dealRepo.GetBySlug("pizza-deal")
	require.NoError(t, err)
	assert.Equal(t, "paused", deal.Status)

	w = env.request(t, http.MethodPatch, "/api/deals/pizza-deal/status", "secret-key",
		map[string]string{"status": "retired"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPatch, "/api/deals/no-such-deal/status", "secret-key",
		map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
