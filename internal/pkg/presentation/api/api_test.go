package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frankss230/AFE-plus-2/internal/pkg/application/cases"
	"github.com/frankss230/AFE-plus-2/internal/pkg/application/escalation"
	"github.com/frankss230/AFE-plus-2/internal/pkg/application/telemetry"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/dispatch"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/messaging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/repositories/database"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/router"
	"github.com/frankss230/AFE-plus-2/pkg/types"

	"github.com/go-chi/jwtauth/v5"
	"github.com/matryer/is"
)

func TestHealthEndpointReturns204(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodGet, "/health", "", nil)
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestSOSOutsideTheSafezoneEscalates(t *testing.T) {
	is, ts, env := testSetup(t)
	defer ts.Close()

	env.recordLocation(is, 120)

	resp, body := testRequest(is, ts, http.MethodPost, "/api/v0/signals/sos", "", bytes.NewBufferString(`{"dependentId": "dependent-1"}`))
	is.Equal(resp.StatusCode, http.StatusOK)

	result := sosResponse{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.Equal(result.Message, "success")
	is.True(result.CanEscalate)
	is.True(result.CaseID != "")
	is.Equal(result.SosDecision.Decision, "outside-no-active-case")
}

func TestRepeatedSOSIsBlocked(t *testing.T) {
	is, ts, env := testSetup(t)
	defer ts.Close()

	env.recordLocation(is, 120)

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/signals/sos", "", bytes.NewBufferString(`{"dependentId": "dependent-1"}`))
	is.Equal(resp.StatusCode, http.StatusOK)

	resp, body := testRequest(is, ts, http.MethodPost, "/api/v0/signals/sos", "", bytes.NewBufferString(`{"dependentId": "dependent-1"}`))
	is.Equal(resp.StatusCode, http.StatusConflict)

	result := sosResponse{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.Equal(result.Message, "blocked")
	is.Equal(result.SosDecision.Decision, "outside-with-active-case")
}

func TestSOSWithoutADependentIDIsRejected(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/signals/sos", "", bytes.NewBufferString(`{}`))
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestSOSForAnUnknownDependentReturns404(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/signals/sos", "", bytes.NewBufferString(`{"dependentId": "nobody"}`))
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestSOSWithoutALocationIsIndeterminate(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, body := testRequest(is, ts, http.MethodPost, "/api/v0/signals/sos", "", bytes.NewBufferString(`{"dependentId": "dependent-1"}`))
	is.Equal(resp.StatusCode, http.StatusBadRequest)

	result := sosResponse{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.Equal(result.SosDecision.Decision, "indeterminate")
}

func TestFallSignalWithMissingAxesIsRejected(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/signals/fall", "", bytes.NewBufferString(
		`{"dependentId": "dependent-1", "caretakerId": "caretaker-1", "status": 2, "latitude": 13.76, "longitude": 100.51}`))
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestFallSignalIsAccepted(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/signals/fall", "", bytes.NewBufferString(
		`{"dependentId": "dependent-1", "caretakerId": "caretaker-1", "xAxis": 0.2, "yAxis": 0.9, "zAxis": 0.1, "status": 2, "latitude": 13.76, "longitude": 100.51}`))
	is.Equal(resp.StatusCode, http.StatusOK)
}

func TestTemperatureSignalIsAccepted(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/signals/temperature", "", bytes.NewBufferString(
		`{"dependentId": "dependent-1", "caretakerId": "caretaker-1", "value": 38.2}`))
	is.Equal(resp.StatusCode, http.StatusOK)
}

func TestLocationSignalFeedsTheNextSOS(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/signals/location", "", bytes.NewBufferString(
		`{"dependentId": "dependent-1", "caretakerId": "caretaker-1", "latitude": 13.76, "longitude": 100.51, "distance": 120}`))
	is.Equal(resp.StatusCode, http.StatusOK)

	resp, _ = testRequest(is, ts, http.MethodPost, "/api/v0/signals/sos", "", bytes.NewBufferString(`{"dependentId": "dependent-1"}`))
	is.Equal(resp.StatusCode, http.StatusOK)
}

func TestActionWithUnknownKindIsRejected(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/actions", "", bytes.NewBufferString(
		`{"action": "escalate", "caseId": "some-case", "actorChatId": "actor-1"}`))
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestAcceptAndCloseThroughActions(t *testing.T) {
	is, ts, env := testSetup(t)
	defer ts.Close()

	caseID := env.openCase(is)

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/actions", "", bytes.NewBufferString(
		`{"action": "accept", "caseId": "`+caseID+`", "actorChatId": "actor-1"}`))
	is.Equal(resp.StatusCode, http.StatusOK)

	resp, _ = testRequest(is, ts, http.MethodPost, "/api/v0/actions", "", bytes.NewBufferString(
		`{"action": "close", "caseId": "`+caseID+`", "actorChatId": "actor-1"}`))
	is.Equal(resp.StatusCode, http.StatusOK)

	resp, _ = testRequest(is, ts, http.MethodPost, "/api/v0/actions", "", bytes.NewBufferString(
		`{"action": "close", "caseId": "`+caseID+`", "actorChatId": "actor-1"}`))
	is.Equal(resp.StatusCode, http.StatusConflict)
}

func TestCloseBeforeAcceptIsAConflict(t *testing.T) {
	is, ts, env := testSetup(t)
	defer ts.Close()

	caseID := env.openCase(is)

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/actions", "", bytes.NewBufferString(
		`{"action": "close", "caseId": "`+caseID+`", "actorChatId": "actor-1"}`))
	is.Equal(resp.StatusCode, http.StatusConflict)
}

func TestAcceptCallEchoesThePhoneNumber(t *testing.T) {
	is, ts, env := testSetup(t)
	defer ts.Close()

	caseID := env.openCase(is)

	resp, body := testRequest(is, ts, http.MethodPost, "/api/v0/cases/accept", "", bytes.NewBufferString(
		`{"caseId": "`+caseID+`", "caretakerId": "caretaker-1", "actorId": "actor-1", "groupId": "group-1", "phone": "0810000002"}`))
	is.Equal(resp.StatusCode, http.StatusOK)

	result := acceptCallResponse{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.Equal(result.Tel, "0810000002")
}

func TestAcceptCallOnATakenCaseIsAConflict(t *testing.T) {
	is, ts, env := testSetup(t)
	defer ts.Close()

	caseID := env.openCase(is)

	req := `{"caseId": "` + caseID + `", "caretakerId": "caretaker-1", "actorId": "actor-1", "groupId": "group-1", "phone": "0810000002"}`

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/cases/accept", "", bytes.NewBufferString(req))
	is.Equal(resp.StatusCode, http.StatusOK)

	resp, _ = testRequest(is, ts, http.MethodPost, "/api/v0/cases/accept", "", bytes.NewBufferString(req))
	is.Equal(resp.StatusCode, http.StatusConflict)
}

func TestAcceptCallForAnUnknownCaseReturns404(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodPost, "/api/v0/cases/accept", "", bytes.NewBufferString(
		`{"caseId": "no-such-case", "caretakerId": "caretaker-1", "actorId": "actor-1", "groupId": "group-1", "phone": "0810000002"}`))
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestQueryingCasesRequiresAToken(t *testing.T) {
	is, ts, _ := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodGet, "/api/v0/cases", "", nil)
	is.Equal(resp.StatusCode, http.StatusUnauthorized)
}

func TestQueryingCasesWithAToken(t *testing.T) {
	is, ts, env := testSetup(t)
	defer ts.Close()

	env.openCase(is)

	resp, body := testRequest(is, ts, http.MethodGet, "/api/v0/cases?open=true", env.token(is), nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	result := struct {
		Message string         `json:"message"`
		Data    []caseResponse `json:"data"`
	}{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.Equal(len(result.Data), 1)
	is.Equal(result.Data[0].Status, "created")
}

func TestGettingAnUnknownCaseReturns404(t *testing.T) {
	is, ts, env := testSetup(t)
	defer ts.Close()

	resp, _ := testRequest(is, ts, http.MethodGet, "/api/v0/cases/no-such-case", env.token(is), nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

type testEnv struct {
	ctx       context.Context
	registry  database.RegistryRepository
	cases     cases.CaseService
	tokenAuth *jwtauth.JWTAuth
}

func (env *testEnv) recordLocation(is *is.I, distance float64) {
	err := env.registry.AddLocation(env.ctx, types.Location{
		Pair:       types.Pair{CaretakerID: "caretaker-1", DependentID: "dependent-1"},
		Distance:   distance,
		Latitude:   13.76,
		Longitude:  100.51,
		ObservedAt: time.Now().UTC(),
	})
	is.NoErr(err)
}

func (env *testEnv) openCase(is *is.I) string {
	c, err := env.cases.Create(env.ctx, types.Pair{CaretakerID: "caretaker-1", DependentID: "dependent-1"}, types.Point{Latitude: 13.75, Longitude: 100.5})
	is.NoErr(err)
	return c.ID
}

func (env *testEnv) token(is *is.I) string {
	_, tokenString, err := env.tokenAuth.Encode(map[string]any{"sub": "operator-1"})
	is.NoErr(err)
	return tokenString
}

func testRequest(is *is.I, ts *httptest.Server, method, path, token string, body *bytes.Buffer) (*http.Response, string) {
	var req *http.Request

	if body != nil {
		req, _ = http.NewRequest(method, ts.URL+path, body)
	} else {
		req, _ = http.NewRequest(method, ts.URL+path, nil)
	}

	if token != "" {
		req.Header.Add("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	is.NoErr(err)

	return resp, string(respBody)
}

func testSetup(t *testing.T) (*is.I, *httptest.Server, *testEnv) {
	is := is.New(t)
	ctx := context.Background()

	conn := database.NewSQLiteConnector(ctx)

	caseRepo, err := database.NewCaseRepository(conn)
	is.NoErr(err)

	registryRepo, err := database.NewRegistryRepository(conn)
	is.NoErr(err)

	telemetryRepo, err := database.NewTelemetryRepository(conn)
	is.NoErr(err)

	pair := types.Pair{CaretakerID: "caretaker-1", DependentID: "dependent-1"}

	is.NoErr(registryRepo.AddCaretaker(ctx, types.Caretaker{ID: "caretaker-1", ChatChannelID: "chat-1", Phone: "0810000001"}))
	is.NoErr(registryRepo.AddDependent(ctx, types.Dependent{ID: "dependent-1", CaretakerID: "caretaker-1", Name: "Somchai", Phone: "0810000002", MaxTemperature: 37.5}))
	is.NoErr(registryRepo.AddSafezone(ctx, types.Safezone{Pair: pair, Radius: 100, Latitude: 13.75, Longitude: 100.5}))

	dispatcher := dispatch.NewNoOpDispatcher()
	messenger := messaging.NewNoOpMessenger()

	caseSvc := cases.New(caseRepo, registryRepo, messenger, dispatcher)
	sosSvc := escalation.New(registryRepo, caseSvc, caseRepo, dispatcher)
	telemetrySvc := telemetry.New(registryRepo, telemetryRepo, messenger, dispatcher, &telemetry.Config{CooldownMinutes: 5, DefaultMaxTemperature: 37.5})

	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)

	r, err := RegisterHandlers(ctx, router.New("care-alert"), sosSvc, telemetrySvc, caseSvc, registryRepo, tokenAuth)
	is.NoErr(err)

	return is, httptest.NewServer(r), &testEnv{ctx: ctx, registry: registryRepo, cases: caseSvc, tokenAuth: tokenAuth}
}
