package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quest-chains/qc-indexer/internal/api/middleware"
	"github.com/quest-chains/qc-indexer/internal/api/rest"
	"github.com/quest-chains/qc-indexer/internal/logger"
	"github.com/quest-chains/qc-indexer/internal/store"
	"github.com/quest-chains/qc-indexer/internal/store/schema"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	gin.SetMode(gin.TestMode)

	code := m.Run()
	os.Exit(code)
}

const (
	chainID = "0x1111111111111111111111111111111111111111"
	userID  = "0xabcabcabcabcabcabcabcabcabcabcabcabcabca"
	apiKey  = "test-api-key"
)

// fakeReadStore serves the read endpoints from in-memory maps
type fakeReadStore struct {
	store.Store

	failErr error

	chains   map[string]*schema.QuestChain
	quests   map[string]*schema.Quest
	statuses map[string]*schema.QuestStatus
	users    map[string]*schema.User
	tokens   map[string]*schema.QuestChainToken

	chainEdits []*schema.QuestChainEdit
	questEdits []*schema.QuestEdit
	sources    []*schema.TrackedSource

	listNetwork string
	listLimit   int
	listOffset  int
}

func (s *fakeReadStore) GetQuestChain(ctx context.Context, id string) (*schema.QuestChain, error) {
	return s.chains[id], s.failErr
}

func (s *fakeReadStore) ListQuestChains(ctx context.Context, network string, limit, offset int) ([]*schema.QuestChain, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	s.listNetwork = network
	s.listLimit = limit
	s.listOffset = offset

	var chains []*schema.QuestChain
	for _, chain := range s.chains {
		chains = append(chains, chain)
	}
	return chains, nil
}

func (s *fakeReadStore) ListQuestsByChain(ctx context.Context, id string) ([]*schema.Quest, error) {
	var quests []*schema.Quest
	for _, quest := range s.quests {
		if quest.QuestChainID == id {
			quests = append(quests, quest)
		}
	}
	return quests, s.failErr
}

func (s *fakeReadStore) ListQuestChainEdits(ctx context.Context, id string) ([]*schema.QuestChainEdit, error) {
	return s.chainEdits, s.failErr
}

func (s *fakeReadStore) GetQuest(ctx context.Context, id string) (*schema.Quest, error) {
	return s.quests[id], s.failErr
}

func (s *fakeReadStore) ListQuestEdits(ctx context.Context, id string) ([]*schema.QuestEdit, error) {
	return s.questEdits, s.failErr
}

func (s *fakeReadStore) GetQuestStatus(ctx context.Context, id string) (*schema.QuestStatus, error) {
	return s.statuses[id], s.failErr
}

func (s *fakeReadStore) GetUser(ctx context.Context, id string) (*schema.User, error) {
	return s.users[id], s.failErr
}

func (s *fakeReadStore) ListQuestStatusesByUser(ctx context.Context, id string) ([]*schema.QuestStatus, error) {
	var statuses []*schema.QuestStatus
	for _, status := range s.statuses {
		if status.UserID == id {
			statuses = append(statuses, status)
		}
	}
	return statuses, s.failErr
}

func (s *fakeReadStore) GetToken(ctx context.Context, id string) (*schema.QuestChainToken, error) {
	return s.tokens[id], s.failErr
}

func (s *fakeReadStore) AddTrackedSource(ctx context.Context, source *schema.TrackedSource) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.sources = append(s.sources, source)
	return nil
}

func newTestRouter(fs *fakeReadStore) *gin.Engine {
	router := gin.New()
	rest.SetupRoutes(router, rest.NewHandler(fs), middleware.AuthConfig{
		APIKeys: []string{apiKey},
	})
	return router
}

func seededStore() *fakeReadStore {
	name := "Test Chain"
	return &fakeReadStore{
		chains: map[string]*schema.QuestChain{
			chainID: {
				ID:        chainID,
				Network:   "eip155:100",
				CreatorID: userID,
				Name:      &name,
				CreatedAt: time.Unix(1700000000, 0),
			},
		},
		quests: map[string]*schema.Quest{
			chainID + "-0": {ID: chainID + "-0", QuestChainID: chainID, QuestNumber: 0},
			chainID + "-1": {ID: chainID + "-1", QuestChainID: chainID, QuestNumber: 1},
		},
		statuses: map[string]*schema.QuestStatus{
			chainID + "-0-" + userID: {
				ID:      chainID + "-0-" + userID,
				QuestID: chainID + "-0",
				UserID:  userID,
				Status:  schema.StatusPass,
			},
		},
		users: map[string]*schema.User{
			userID: {ID: userID, AdminOf: schema.IDList{chainID}},
		},
		tokens: map[string]*schema.QuestChainToken{},
	}
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(seededStore())

	w := doRequest(router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetQuestChain(t *testing.T) {
	router := newTestRouter(seededStore())

	w := doRequest(router, http.MethodGet, "/api/v1/chains/"+chainID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var chain schema.QuestChain
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chain))
	assert.Equal(t, chainID, chain.ID)
	require.NotNil(t, chain.Name)
	assert.Equal(t, "Test Chain", *chain.Name)

	w = doRequest(router, http.MethodGet, "/api/v1/chains/0x9999999999999999999999999999999999999999", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestGetQuestChain_StoreError(t *testing.T) {
	fs := seededStore()
	fs.failErr = errors.New("connection refused")
	router := newTestRouter(fs)

	w := doRequest(router, http.MethodGet, "/api/v1/chains/"+chainID, "", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "database_error")
}

func TestListQuestChains(t *testing.T) {
	fs := seededStore()
	router := newTestRouter(fs)

	w := doRequest(router, http.MethodGet, "/api/v1/chains?network=eip155:100&limit=10&offset=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "eip155:100", fs.listNetwork)
	assert.Equal(t, 10, fs.listLimit)
	assert.Equal(t, 5, fs.listOffset)

	var body struct {
		Chains []*schema.QuestChain `json:"chains"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Chains, 1)

	// Defaults apply when the parameters are absent
	w = doRequest(router, http.MethodGet, "/api/v1/chains", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, fs.listLimit)
	assert.Equal(t, 0, fs.listOffset)
}

func TestListQuestChains_InvalidPagination(t *testing.T) {
	router := newTestRouter(seededStore())

	for _, path := range []string{
		"/api/v1/chains?limit=abc",
		"/api/v1/chains?limit=0",
		"/api/v1/chains?offset=-1",
	} {
		w := doRequest(router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestListChainQuests(t *testing.T) {
	router := newTestRouter(seededStore())

	w := doRequest(router, http.MethodGet, "/api/v1/chains/"+chainID+"/quests", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Quests []*schema.Quest `json:"quests"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Quests, 2)
}

func TestGetQuest(t *testing.T) {
	router := newTestRouter(seededStore())

	w := doRequest(router, http.MethodGet, "/api/v1/quests/"+chainID+"-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var quest schema.Quest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quest))
	assert.Equal(t, uint64(1), quest.QuestNumber)

	w = doRequest(router, http.MethodGet, "/api/v1/quests/"+chainID+"-42", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserAndStatuses(t *testing.T) {
	router := newTestRouter(seededStore())

	w := doRequest(router, http.MethodGet, "/api/v1/users/"+userID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user schema.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, schema.IDList{chainID}, user.AdminOf)

	w = doRequest(router, http.MethodGet, "/api/v1/users/"+userID+"/statuses", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Statuses []*schema.QuestStatus `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Statuses, 1)
	assert.Equal(t, schema.StatusPass, body.Statuses[0].Status)
}

func TestGetToken_NotFound(t *testing.T) {
	router := newTestRouter(seededStore())

	w := doRequest(router, http.MethodGet, "/api/v1/tokens/"+chainID+"-7", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterSource(t *testing.T) {
	fs := seededStore()
	router := newTestRouter(fs)

	body := `{"address":"0x2222222222222222222222222222222222222222","network":"eip155:100"}`

	t.Run("requires authentication", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/v1/sources", body, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, fs.sources)
	})

	t.Run("registers with api key", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/v1/sources", body, map[string]string{
			"Authorization": "ApiKey " + apiKey,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, fs.sources, 1)
		assert.Equal(t, "0x2222222222222222222222222222222222222222", fs.sources[0].Address)
		assert.Equal(t, "eip155:100", fs.sources[0].Network)
	})

	t.Run("rejects unsupported network", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/v1/sources",
			`{"address":"0x2222222222222222222222222222222222222222","network":"eip155:42"}`,
			map[string]string{"Authorization": "ApiKey " + apiKey})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/v1/sources",
			`{"address":"0x2222222222222222222222222222222222222222"}`,
			map[string]string{"Authorization": "ApiKey " + apiKey})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
