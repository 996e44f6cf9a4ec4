package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/govgen-backend/internal/clients/gcp"
	"github.com/yungbote/govgen-backend/internal/clients/openai"
	"github.com/yungbote/govgen-backend/internal/data/repos"
	"github.com/yungbote/govgen-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/govgen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/govgen-backend/internal/http/middleware"
	"github.com/yungbote/govgen-backend/internal/observability"
	"github.com/yungbote/govgen-backend/internal/services"
	"github.com/yungbote/govgen-backend/internal/temporalx/generationrun"
)

const verdictJSON = `{"testsPassed":true,"testCoverage":88,"adrCompliant":true,"cpApViolations":0,"piiMaskingEnforced":true,"details":"masking applied"}`

// scriptedModel answers by stage: the schema request gets the verdict, the
// rest get plain text keyed off the system prompt.
type scriptedModel struct {
	mu    sync.Mutex
	calls int
}

func (m *scriptedModel) Complete(_ context.Context, req openai.Request) (*openai.Completion, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if req.Schema != nil {
		return &openai.Completion{Content: verdictJSON, Structured: json.RawMessage(verdictJSON)}, nil
	}
	sys := strings.ToLower(req.Messages[0].Content)
	switch {
	case strings.Contains(sys, "test"):
		return &openai.Completion{Content: "public class ClaimsTests {}"}, nil
	case strings.Contains(sys, "reason"), strings.Contains(sys, "architect"):
		return &openai.Completion{Content: "Step 1: apply ADR-001"}, nil
	default:
		return &openai.Completion{Content: "public class Claims {}"}, nil
	}
}

type fakeRuns struct{ got []generationrun.RunInput }

func (f *fakeRuns) StartRun(_ context.Context, in generationrun.RunInput) (*generationrun.Run, error) {
	f.got = append(f.got, in)
	return &generationrun.Run{WorkflowID: generationrun.WorkflowID(in.GenerationID), RunID: "run-1"}, nil
}

type apiEnv struct {
	router *gin.Engine
	auth   services.AuthService
	model  *scriptedModel
	bucket *gcp.MemoryBucket
	token  string
}

func newAPIEnv(t *testing.T, runs httpH.RunStarter) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	gens := repos.NewGenerationRepo(db, log)
	vals := repos.NewValidationRepo(db, log)
	docs := repos.NewDocumentRepo(db, log)
	snaps := repos.NewMetricSnapshotRepo(db, log)
	metrics := observability.NewMetrics()

	env := &apiEnv{
		auth:   services.NewAuthService(log, "router-test-secret", "govgen"),
		model:  &scriptedModel{},
		bucket: gcp.NewMemoryBucket(""),
	}
	pipeline := services.NewGenerationPipeline(services.GenerationPipelineDeps{
		DB:          db,
		Log:         log,
		Generations: gens,
		Validations: vals,
		Assembler:   services.NewContextAssembler(log, services.NaiveRetriever{Docs: docs}),
		Client:      env.model,
		Metrics:     metrics,
	})
	env.router = NewRouter(RouterConfig{
		Log:               log,
		Metrics:           metrics,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, env.auth),
		GenerationHandler: httpH.NewGenerationHandler(log, pipeline, runs),
		DocumentHandler:   httpH.NewDocumentHandler(log, services.NewDocumentService(log, docs, env.bucket)),
		MetricsHandler:    httpH.NewMetricsHandler(log, services.NewMetricsService(log, gens, vals, docs, snaps)),
		HealthHandler:     httpH.NewHealthHandler(nil),
	})
	env.token = env.tokenFor(t, uuid.New())
	return env
}

func (e *apiEnv) tokenFor(t *testing.T, uid uuid.UUID) string {
	t.Helper()
	tok, err := e.auth.IssueToken(uid, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (e *apiEnv) createGeneration(t *testing.T) int {
	t.Helper()
	rec := e.do(t, nethttp.MethodPost, "/api/generations", e.token, map[string]any{
		"title":        "Claims PII Masking Service",
		"contextQuery": "Mask SSN before logging",
	})
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	return int(decode(t, rec)["id"].(float64))
}

func TestStagesEndToEnd(t *testing.T) {
	e := newAPIEnv(t, nil)
	id := e.createGeneration(t)
	base := fmt.Sprintf("/api/generations/%d", id)

	rec := e.do(t, nethttp.MethodPost, base+"/reason", e.token, map[string]any{"contextQuery": "Mask SSN before logging"})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Step 1: apply ADR-001", decode(t, rec)["cotReasoning"])

	rec = e.do(t, nethttp.MethodPost, base+"/generate", e.token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.Equal(t, "public class Claims {}", body["generatedCode"])
	require.Equal(t, "public class ClaimsTests {}", body["generatedTests"])

	rec = e.do(t, nethttp.MethodPost, base+"/validate", e.token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	v := decode(t, rec)["validation"].(map[string]any)
	require.Equal(t, float64(88), v["testCoverage"])

	rec = e.do(t, nethttp.MethodGet, base, e.token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	g := decode(t, rec)["generation"].(map[string]any)
	require.Equal(t, "completed", g["status"])

	rec = e.do(t, nethttp.MethodGet, "/api/generations", e.token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["generations"], 1)

	rec = e.do(t, nethttp.MethodGet, "/api/metrics/summary", e.token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	sum := decode(t, rec)["summary"].(map[string]any)
	require.Equal(t, float64(1), sum["completedGenerations"])
	require.Equal(t, float64(100), sum["successRate"])
}

func TestErrorMapping(t *testing.T) {
	e := newAPIEnv(t, nil)
	id := e.createGeneration(t)

	rec := e.do(t, nethttp.MethodPost, fmt.Sprintf("/api/generations/%d/generate", id), e.token, nil)
	require.Equal(t, nethttp.StatusPreconditionFailed, rec.Code)
	require.Equal(t, "precondition_failed", errorCode(t, rec))
	require.Zero(t, e.model.calls)

	other := e.tokenFor(t, uuid.New())
	rec = e.do(t, nethttp.MethodGet, fmt.Sprintf("/api/generations/%d", id), other, nil)
	require.Equal(t, nethttp.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", errorCode(t, rec))

	rec = e.do(t, nethttp.MethodPost, "/api/generations", e.token, map[string]any{"title": ""})
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", errorCode(t, rec))

	rec = e.do(t, nethttp.MethodGet, "/api/generations/abc", e.token, nil)
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = e.do(t, nethttp.MethodGet, "/api/generations", "", nil)
	require.Equal(t, nethttp.StatusUnauthorized, rec.Code)
}

func TestRunSynchronousWithoutWorkflowEngine(t *testing.T) {
	e := newAPIEnv(t, nil)
	id := e.createGeneration(t)

	rec := e.do(t, nethttp.MethodPost, fmt.Sprintf("/api/generations/%d/run", id), e.token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.Equal(t, "completed", body["generation"].(map[string]any)["status"])
	require.NotNil(t, body["validation"])
	require.Equal(t, 4, e.model.calls)
}

func TestRunQueuesWorkflow(t *testing.T) {
	runs := &fakeRuns{}
	e := newAPIEnv(t, runs)
	id := e.createGeneration(t)

	rec := e.do(t, nethttp.MethodPost, fmt.Sprintf("/api/generations/%d/run", id), e.token, map[string]any{"contextQuery": "claims"})
	require.Equal(t, nethttp.StatusAccepted, rec.Code, rec.Body.String())
	require.Equal(t, generationrun.WorkflowID(uint(id)), decode(t, rec)["workflowId"])
	require.Len(t, runs.got, 1)
	require.Equal(t, "claims", runs.got[0].ContextQuery)
	require.Zero(t, e.model.calls)

	rec = e.do(t, nethttp.MethodPost, fmt.Sprintf("/api/generations/%d/fail", id), e.token, map[string]any{"reason": "abandoned"})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	rec = e.do(t, nethttp.MethodPost, fmt.Sprintf("/api/generations/%d/run", id), e.token, nil)
	require.Equal(t, nethttp.StatusPreconditionFailed, rec.Code)
	require.Len(t, runs.got, 1)
}

func TestDocumentsCRUDAndUpload(t *testing.T) {
	e := newAPIEnv(t, nil)

	rec := e.do(t, nethttp.MethodPost, "/api/documents", e.token, map[string]any{
		"title": "ADR-001 PII Masking", "content": "All PII must be masked.", "type": "adr",
	})
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	docID := int(decode(t, rec)["document"].(map[string]any)["id"].(float64))

	rec = e.do(t, nethttp.MethodPatch, fmt.Sprintf("/api/documents/%d", docID), e.token, map[string]any{"title": "ADR-001 Masking"})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "ADR-001 Masking", decode(t, rec)["document"].(map[string]any)["title"])

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("type", "standard"))
	fw, err := mw.CreateFormFile("file", "logging-standard.md")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("# Logging\nNever log raw SSNs."))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(nethttp.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token)
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	up := decode(t, rec)["document"].(map[string]any)
	require.Equal(t, "logging-standard", up["title"])
	require.True(t, e.bucket.Has(up["fileKey"].(string)))

	rec = e.do(t, nethttp.MethodGet, "/api/documents", e.token, nil)
	require.Len(t, decode(t, rec)["documents"], 2)

	rec = e.do(t, nethttp.MethodDelete, fmt.Sprintf("/api/documents/%d", docID), e.token, nil)
	require.Equal(t, nethttp.StatusNoContent, rec.Code)
	rec = e.do(t, nethttp.MethodGet, fmt.Sprintf("/api/documents/%d", docID), e.token, nil)
	require.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestMetricSnapshots(t *testing.T) {
	e := newAPIEnv(t, nil)
	rec := e.do(t, nethttp.MethodPost, "/api/metrics/snapshots", e.token, map[string]any{"period": "2025-W10"})
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, nethttp.MethodPost, "/api/metrics/snapshots", e.token, map[string]any{"period": " "})
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = e.do(t, nethttp.MethodGet, "/api/metrics/snapshots?limit=10", e.token, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["snapshots"], 1)
}

func TestOpsEndpoints(t *testing.T) {
	e := newAPIEnv(t, nil)
	rec := e.do(t, nethttp.MethodGet, "/healthcheck", "", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	rec = e.do(t, nethttp.MethodGet, "/api/generations", "", nil)
	require.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	rec = e.do(t, nethttp.MethodGet, "/metrics", "", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `govgen_api_requests_total{method="GET",route="/api/generations",status="401"} 1`)
	require.NotContains(t, body, `route="/healthcheck"`)
}
