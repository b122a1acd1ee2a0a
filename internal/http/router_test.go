package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"questlog/internal/auth"
	"questlog/internal/command"
	"questlog/internal/config"
	"questlog/internal/docstore"
	"questlog/internal/identity"
	"questlog/internal/quest"
)

type testAPI struct {
	t     *testing.T
	h     http.Handler
	store *docstore.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.db")
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&auth.User{}))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := docstore.NewMemoryStore()
	quests := quest.NewManager(store, identity.NewSystem(), zerolog.Nop())
	h := NewRouter(config.Config{}, Deps{
		DB:       gdb,
		JWT:      auth.NewJWT("test-secret"),
		Quests:   quests,
		Commands: command.NewDispatcher(quests, zerolog.Nop()),
		History:  store,
		Log:      zerolog.Nop(),
	})
	return &testAPI{t: t, h: h, store: store}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(email string) (token, role string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, resp.Role
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	gm, role := api.register("GM@example.com")
	assert.Equal(t, "director", role)
	_, role = api.register("pc@example.com")
	assert.Equal(t, "player", role)

	rec := api.do(http.MethodPost, "/auth/register", "", map[string]string{"email": "gm@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "gm@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "gm@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/me", gm, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "director", me["role"])
}

func TestQuestLifecycle(t *testing.T) {
	api := newTestAPI(t)
	gm, _ := api.register("gm@example.com")
	pc, _ := api.register("pc@example.com")

	rec := api.do(http.MethodPost, "/quests", pc, map[string]any{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/quests", gm, map[string]any{
		"title":    "Find the Relic",
		"category": "main",
		"priority": "legendary",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		ID       string   `json:"id"`
		Rejected []string `json:"rejected"`
	}](t, rec)
	assert.Equal(t, []string{"priority"}, created.Rejected)
	id := created.ID

	rec = api.do(http.MethodPatch, "/quests/"+id, gm, map[string]any{"priority": "high", "status": "bogus"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rejected":["status"]}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/quests/"+id, gm, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[quest.QuestSnapshot](t, rec)
	assert.Equal(t, "Find the Relic", snap.Title)
	assert.Equal(t, quest.PriorityHigh, snap.Priority)
	assert.Equal(t, quest.StatusNotStarted, snap.Status)
	assert.False(t, snap.VisibleToPlayers, "unset visibility reads hidden to the director")

	rec = api.do(http.MethodGet, "/quests/"+id, pc, nil)
	require.Equal(t, http.StatusOK, rec.Code, "unset visibility reads visible to players")

	rec = api.do(http.MethodGet, "/quests/does-not-exist", gm, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/quests/"+id+"/timeline", gm, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	timeline := decode[[]map[string]any](t, rec)
	require.Len(t, timeline, 2)
	assert.Equal(t, "Create quest", timeline[0]["description"])
	assert.Equal(t, "Update quest", timeline[1]["description"])

	rec = api.do(http.MethodGet, "/quests/"+id+"/timeline", pc, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestObjectivesAndNotesAreFilteredForPlayers(t *testing.T) {
	api := newTestAPI(t)
	gm, _ := api.register("gm@example.com")
	pc, _ := api.register("pc@example.com")

	rec := api.do(http.MethodPost, "/quests", gm, map[string]any{"title": "Find the Relic", "visibleToPlayers": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]any](t, rec)["id"].(string)

	var objectiveIDs []string
	for i, desc := range []string{"Reach the shrine", "Light the braziers", "Take the relic"} {
		rec = api.do(http.MethodPost, "/quests/"+id+"/objectives", gm, map[string]any{"description": desc})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		o := decode[struct {
			ID    string `json:"id"`
			Order int    `json:"order"`
		}](t, rec)
		assert.Equal(t, i+1, o.Order)
		objectiveIDs = append(objectiveIDs, o.ID)
	}

	rec = api.do(http.MethodDelete, "/quests/"+id+"/objectives/"+objectiveIDs[1], gm, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodDelete, "/quests/"+id+"/objectives/"+objectiveIDs[1], gm, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPatch, "/objectives/"+objectiveIDs[0], gm, map[string]any{"status": "completed", "order": 7})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rejected":["order"]}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/quests/"+id+"/notes", gm, map[string]any{"audience": "player", "content": "Check the shrine"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(http.MethodPost, "/quests/"+id+"/notes", gm, map[string]any{"audience": "player", "content": "Not yet", "visible": false})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(http.MethodPost, "/quests/"+id+"/notes", gm, map[string]any{"audience": "director", "content": "The priest lies"})
	require.Equal(t, http.StatusCreated, rec.Code)
	secret := decode[quest.Note](t, rec)
	assert.False(t, secret.VisibleToPlayers)
	rec = api.do(http.MethodPost, "/objectives/"+objectiveIDs[0]+"/notes", gm, map[string]any{"audience": "director", "content": "Trap"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(http.MethodPost, "/quests/"+id+"/notes", gm, map[string]any{"audience": "crowd", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/quests/"+id, pc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[quest.QuestSnapshot](t, rec)
	require.Len(t, snap.Objectives, 2)
	assert.Equal(t, 1, snap.Objectives[0].Order)
	assert.Equal(t, quest.StatusCompleted, snap.Objectives[0].Status)
	assert.Equal(t, 3, snap.Objectives[1].Order)
	assert.Empty(t, snap.Objectives[0].DirectorNotes)
	require.Len(t, snap.PlayerNotes, 1)
	assert.Equal(t, "Check the shrine", snap.PlayerNotes[0].Content)
	assert.Empty(t, snap.DirectorNotes)
	assert.NotContains(t, rec.Body.String(), "The priest lies")

	rec = api.do(http.MethodGet, "/quests/"+id, gm, nil)
	full := decode[quest.QuestSnapshot](t, rec)
	assert.Len(t, full.PlayerNotes, 2)
	assert.Len(t, full.DirectorNotes, 1)

	rec = api.do(http.MethodDelete, "/quests/"+id+"/notes/"+secret.ID, gm, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodDelete, "/quests/"+id+"/notes/"+secret.ID+"?audience=director", gm, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVisibilityCommand(t *testing.T) {
	api := newTestAPI(t)
	gm, _ := api.register("gm@example.com")
	pc, _ := api.register("pc@example.com")

	rec := api.do(http.MethodPost, "/quests", gm, map[string]any{"title": "Alpha", "visibleToPlayers": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(http.MethodPost, "/quests", gm, map[string]any{"title": "Beta", "visibleToPlayers": true})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodPost, "/commands/visibility", pc, "Beta|0")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/commands/visibility", gm, "Beta|0")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[command.Result](t, rec)
	assert.True(t, res.Applied)
	assert.False(t, res.Visible)

	rec = api.do(http.MethodGet, "/quests", pc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]quest.QuestSnapshot](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Alpha", list[0].Title)

	rec = api.do(http.MethodGet, "/quests", gm, nil)
	assert.Len(t, decode[[]quest.QuestSnapshot](t, rec), 2)

	rec = api.do(http.MethodPost, "/commands/visibility", gm, "Gamma|1")
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[command.Result](t, rec)
	assert.False(t, res.Applied)
	assert.Equal(t, command.ReasonNotFound, res.Reason)

	rec = api.do(http.MethodPost, "/commands/visibility", gm, "Alpha|perhaps")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), command.ReasonMalformed))
}
