package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"team-governance/internal/domain"
	"team-governance/internal/governance"
	"team-governance/internal/middleware"
	"team-governance/internal/repository"
	"team-governance/internal/service"
	"team-governance/internal/service/auth"
	"team-governance/pkg/logger"
	"team-governance/pkg/redis"
)

const teamPath = "/api/teams/falcons/7"

// memoryLedger records transfers without checking balances
type memoryLedger struct {
	mu        sync.Mutex
	transfers []domain.Transfer
}

func (l *memoryLedger) Transfer(_ context.Context, t domain.Transfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transfers = append(l.transfers, t)
	return nil
}

func (l *memoryLedger) Balance(context.Context, string) (uint64, error) { return 0, nil }

func (l *memoryLedger) Deposit(context.Context, string, uint64) error { return nil }

type apiEnv struct {
	router http.Handler
	auth   *auth.Service
	ledger *memoryLedger
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewRedisTeamStore(client, repository.DefaultLockOptions(), zap.NewNop())
	ledger := &memoryLedger{}
	teams := service.NewTeamService(store, ledger, governance.DefaultRules(), zap.NewNop())
	log := logger.NewNop()
	identity := auth.NewService("handler-test", "", log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(identity, log))
		NewTeamHandler(teams, log).RegisterRoutes(r)
	})

	return &apiEnv{router: r, auth: identity, ledger: ledger}
}

func (e *apiEnv) do(t *testing.T, caller, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		token, err := e.auth.IssueToken(domain.Principal{ID: caller}, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) fullTeam(t *testing.T) {
	t.Helper()
	rec := e.do(t, "m1", http.MethodPost, "/api/teams", map[string]interface{}{"name": "falcons", "id": 7})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	for i := 2; i <= domain.MaxSeats; i++ {
		rec := e.do(t, "m1", http.MethodPost, teamPath+"/members", map[string]string{"member": fmt.Sprintf("m%d", i)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func (e *apiEnv) vote(t *testing.T, path string, voters ...string) {
	t.Helper()
	for _, voter := range voters {
		rec := e.do(t, voter, http.MethodPost, teamPath+path, map[string]string{"vote": "yes"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

type errorBody struct {
	Error struct {
		Type      string                 `json:"type"`
		Code      string                 `json:"code"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details"`
		RequestID string                 `json:"request_id"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) domain.TeamView {
	t.Helper()
	view := domain.TeamView{Team: &domain.Team{}}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view), rec.Body.String())
	return view
}

func TestTeamHandler_Authentication(t *testing.T) {
	env := setupAPI(t)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty token", header: "Bearer "},
		{name: "bad token", header: "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, teamPath, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "authentication", body.Error.Type)
			assert.Equal(t, rec.Header().Get("X-Request-ID"), body.Error.RequestID)
		})
	}
}

func TestTeamHandler_CreateAndGet(t *testing.T) {
	env := setupAPI(t)

	rec := env.do(t, "m1", http.MethodPost, "/api/teams", map[string]interface{}{"name": "falcons", "id": 7})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.Equal(t, "m1", view.Captain)
	assert.Equal(t, domain.StageIdle, view.Stage)
	assert.Equal(t, domain.MaxSeats-1, view.SeatsAvailable)

	rec = env.do(t, "m2", http.MethodPost, "/api/teams", map[string]interface{}{"name": "falcons", "id": 7})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_TEAM", decodeError(t, rec).Error.Code)

	rec = env.do(t, "m2", http.MethodGet, teamPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.Identity{"m1"}, decodeView(t, rec).Members)

	rec = env.do(t, "m2", http.MethodGet, "/api/teams/falcons/8", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "TEAM_NOT_FOUND", decodeError(t, rec).Error.Code)
}

func TestTeamHandler_RequestValidation(t *testing.T) {
	env := setupAPI(t)
	env.fullTeam(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		field  string
	}{
		{name: "missing team id", method: http.MethodPost, path: "/api/teams", body: map[string]interface{}{"name": "hawks"}, field: "ID"},
		{name: "missing team name", method: http.MethodPost, path: "/api/teams", body: map[string]interface{}{"id": 1}, field: "Name"},
		{name: "missing member", method: http.MethodPost, path: teamPath + "/members", body: map[string]string{}, field: "Member"},
		{name: "missing event id", method: http.MethodPost, path: teamPath + "/event", body: map[string]interface{}{"prize": 10}, field: "EventID"},
		{name: "missing vote", method: http.MethodPost, path: teamPath + "/event/votes", body: map[string]string{}, field: "Vote"},
		{name: "too many shares", method: http.MethodPost, path: teamPath + "/distribution", body: map[string]interface{}{"percentages": []int{20, 20, 20, 20, 10, 10}}, field: "Percentages"},
		{name: "share out of range", method: http.MethodPost, path: teamPath + "/distribution", body: map[string]interface{}{"percentages": []int{300, 0, 0, 0, 0}}, field: "Percentages[0]"},
		{name: "zero claim", method: http.MethodPost, path: teamPath + "/rewards/claim", body: map[string]interface{}{"amount": 0}, field: "Amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "m1", tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "validation", body.Error.Type)
			assert.Contains(t, body.Error.Details, tt.field)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, teamPath+"/members", bytes.NewBufferString("{"))
		token, err := env.auth.IssueToken(domain.Principal{ID: "m1"}, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non numeric team id", func(t *testing.T) {
		rec := env.do(t, "m1", http.MethodGet, "/api/teams/falcons/seven", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTeamHandler_MembershipErrors(t *testing.T) {
	env := setupAPI(t)
	env.fullTeam(t)

	tests := []struct {
		name   string
		caller string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"roster full", "m1", http.MethodPost, teamPath + "/members", map[string]string{"member": "m6"}, http.StatusConflict, "TEAM_CAPACITY_FULL"},
		{"not captain adds", "m2", http.MethodPost, teamPath + "/members", map[string]string{"member": "m6"}, http.StatusForbidden, "NOT_CAPTAIN"},
		{"not captain removes", "m2", http.MethodDelete, teamPath + "/members/m3", nil, http.StatusForbidden, "NOT_CAPTAIN"},
		{"remove outsider", "m1", http.MethodDelete, teamPath + "/members/m9", nil, http.StatusConflict, "MEMBER_NOT_IN_TEAM"},
		{"captain to outsider", "m1", http.MethodPost, teamPath + "/captain", map[string]string{"member": "m9"}, http.StatusConflict, "MEMBER_NOT_IN_TEAM"},
		{"vote without event", "m1", http.MethodPost, teamPath + "/event/votes", map[string]string{"vote": "yes"}, http.StatusConflict, "NO_ACTIVE_EVENT"},
		{"eligibility without event", "m9", http.MethodPost, teamPath + "/eligibility", nil, http.StatusConflict, "NO_ACTIVE_EVENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.caller, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
		})
	}
}

func TestTeamHandler_Roster(t *testing.T) {
	env := setupAPI(t)
	env.fullTeam(t)

	rec := env.do(t, "m1", http.MethodDelete, teamPath+"/members/m5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeView(t, rec).SeatsAvailable)

	rec = env.do(t, "m1", http.MethodPost, teamPath+"/captain", map[string]string{"member": "m3"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m3", decodeView(t, rec).Captain)

	rec = env.do(t, "m4", http.MethodPost, teamPath+"/leave", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, "m4", http.MethodGet, teamPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.Identity{"m1", "m2", "m3"}, decodeView(t, rec).Members)
}

func TestTeamHandler_EventLifecycle(t *testing.T) {
	env := setupAPI(t)
	env.fullTeam(t)

	rec := env.do(t, "m1", http.MethodPost, teamPath+"/event", map[string]interface{}{"event_id": "cup-2024", "prize": 1000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.Equal(t, domain.StageVotingToJoin, view.Stage)
	assert.Equal(t, uint64(1000), view.EventPrize)

	env.vote(t, "/event/votes", "m1", "m2")
	rec = env.do(t, "m3", http.MethodPost, teamPath+"/event/votes", map[string]string{"vote": "YES"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var outcome domain.VoteOutcome
	outcome.Team = &domain.TeamView{Team: &domain.Team{}}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.True(t, outcome.Approved)
	assert.Equal(t, domain.StageActive, outcome.Team.Stage)

	rec = env.do(t, "m1", http.MethodPost, teamPath+"/event/votes", map[string]string{"vote": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_VOTE", decodeError(t, rec).Error.Code)

	rec = env.do(t, "m1", http.MethodPost, teamPath+"/distribution", map[string]interface{}{"percentages": []int{40, 30, 10, 10, 5}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_PERCENTAGE", decodeError(t, rec).Error.Code)

	rec = env.do(t, "m1", http.MethodPost, teamPath+"/distribution", map[string]interface{}{"percentages": []int{40, 30, 10, 10, 10}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.Percentages{40, 30, 10, 10, 10}, decodeView(t, rec).DistributionPercentages)

	env.vote(t, "/distribution/votes", "m1", "m2", "m3")

	rec = env.do(t, "outsider", http.MethodPost, teamPath+"/eligibility", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"team":{"name":"falcons","id":7},"eligible":true}`, rec.Body.String())

	rec = env.do(t, "m2", http.MethodPost, teamPath+"/rewards/claim", map[string]interface{}{"amount": 300})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result domain.ClaimResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, uint64(300), result.Cap)
	assert.Equal(t, uint64(300), result.Claimed)
	require.Len(t, env.ledger.transfers, 1)
	assert.Equal(t, "pool:falcons:7", env.ledger.transfers[0].From)
	assert.Equal(t, "m2", env.ledger.transfers[0].To)

	rec = env.do(t, "m2", http.MethodPost, teamPath+"/rewards/claim", map[string]interface{}{"amount": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "EXCEEDS_CAP", decodeError(t, rec).Error.Code)

	env.vote(t, "/event/leave-votes", "m3", "m4", "m5")
	rec = env.do(t, "m1", http.MethodGet, teamPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	assert.Equal(t, domain.StageIdle, view.Stage)
	assert.Empty(t, view.ActiveEvent)
}
