package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Amplicore/internal/service/servicetest"
)

type testAPI struct {
	env     *servicetest.Env
	handler http.Handler
}

func newTestAPI(t *testing.T, ratePerMin int) *testAPI {
	t.Helper()
	env := servicetest.New(t)
	h := NewHandler(Config{
		Service:          env.Service,
		SubmitRatePerMin: ratePerMin,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &testAPI{env: env, handler: h.Routes()}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// decode разбирает конверт {"data": ...} в out.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Data  json.RawMessage `json:"data"`
		Total int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) ErrorCode {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error.Code
}

func (a *testAPI) createProject(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/projects", CreateProjectRequest{Name: "soil"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p struct {
		ProjectID string `json:"project_id"`
	}
	decode(t, rec, &p)
	return p.ProjectID
}

func TestTools(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := a.do(t, http.MethodGet, "/api/v1/tools?category=core%20pipeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tools []map[string]any
	decode(t, rec, &tools)
	assert.Len(t, tools, 2)

	rec = a.do(t, http.MethodGet, "/api/v1/tools/stepB", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tool struct {
		Name   string           `json:"name"`
		Params []map[string]any `json:"params"`
	}
	decode(t, rec, &tool)
	assert.Equal(t, "stepB", tool.Name)
	assert.Len(t, tool.Params, 2)

	rec = a.do(t, http.MethodGet, "/api/v1/tools/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeUnknownTool, errorCode(t, rec))
}

func TestProjects(t *testing.T) {
	a := newTestAPI(t, 0)
	id := a.createProject(t)

	rec := a.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = a.do(t, http.MethodGet, "/api/v1/projects/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		StepsTotal int              `json:"steps_total"`
		Steps      []map[string]any `json:"pipeline_steps"`
	}
	decode(t, rec, &detail)
	assert.Equal(t, 3, detail.StepsTotal)
	assert.Len(t, detail.Steps, 3)

	rec = a.do(t, http.MethodPatch, "/api/v1/projects/"+id, UpdateProjectRequest{Metadata: map[string]any{"primer": "V4"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"primer":"V4"`)

	rec = a.do(t, http.MethodGet, "/api/v1/projects/deadbeef", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeNotFound, errorCode(t, rec))

	rec = a.do(t, http.MethodPost, "/api/v1/projects", CreateProjectRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitJob(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := a.do(t, http.MethodPost, "/api/v1/jobs", SubmitJobRequest{ToolName: "stepA"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var job struct {
		JobID  uuid.UUID `json:"job_id"`
		Status string    `json:"status"`
		PID    *int      `json:"pid"`
	}
	decode(t, rec, &job)
	assert.Equal(t, "running", job.Status)
	assert.NotNil(t, job.PID)

	a.env.WaitFinished(t, job.JobID)

	rec = a.do(t, http.MethodGet, "/api/v1/jobs/"+job.JobID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)

	rec = a.do(t, http.MethodGet, "/api/v1/jobs/"+job.JobID.String()+"/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		OutputFiles map[string]string `json:"output_files"`
		LogTail     string            `json:"log_tail"`
	}
	decode(t, rec, &res)
	assert.Contains(t, res.OutputFiles, "fasta")
	assert.Equal(t, "stepA done\n", res.LogTail)

	rec = a.do(t, http.MethodGet, "/api/v1/jobs/"+job.JobID.String()+"/log?tail=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "[log_file: "))

	rec = a.do(t, http.MethodGet, "/api/v1/jobs/"+job.JobID.String()+"/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stepA ok")

	rec = a.do(t, http.MethodGet, "/api/v1/jobs?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestSubmitJob_Errors(t *testing.T) {
	a := newTestAPI(t, 0)

	tests := []struct {
		name   string
		body   any
		status int
		code   ErrorCode
	}{
		{"unknown tool", SubmitJobRequest{ToolName: "nope"}, http.StatusNotFound, ErrCodeUnknownTool},
		{"missing params", SubmitJobRequest{ToolName: "stepB"}, http.StatusBadRequest, ErrCodeMissingParameter},
		{"no tool", SubmitJobRequest{}, http.StatusBadRequest, ErrCodeBadRequest},
		{"unknown project", SubmitJobRequest{ToolName: "stepA", ProjectID: "deadbeef"}, http.StatusNotFound, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/api/v1/jobs", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestJobLookupErrors(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := a.do(t, http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/jobs?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/jobs?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelJob(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := a.do(t, http.MethodPost, "/api/v1/jobs", SubmitJobRequest{ToolName: "sleeper"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var job struct {
		JobID uuid.UUID `json:"job_id"`
	}
	decode(t, rec, &job)

	rec = a.do(t, http.MethodPost, "/api/v1/jobs/"+job.JobID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cancelled":true`)

	rec = a.do(t, http.MethodPost, "/api/v1/jobs/"+job.JobID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cancelled":false`)
}

func TestPipelineFlow(t *testing.T) {
	a := newTestAPI(t, 0)
	id := a.createProject(t)

	rec := a.do(t, http.MethodGet, "/api/v1/projects/"+id+"/pipeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"next_step":"stepA"`)

	rec = a.do(t, http.MethodPost, "/api/v1/projects/"+id+"/steps/stepA/jobs", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var first struct {
		JobID uuid.UUID `json:"job_id"`
	}
	decode(t, rec, &first)
	a.env.WaitFinished(t, first.JobID)

	rec = a.do(t, http.MethodGet, "/api/v1/projects/"+id+"/steps/stepB/inputs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inputs map[string]string
	decode(t, rec, &inputs)
	assert.Contains(t, inputs, "input_fasta")

	rec = a.do(t, http.MethodGet, "/api/v1/projects/"+id+"/pipeline/recommendations?format=markdown", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "### Next recommended step: `stepB`")
	assert.Contains(t, rec.Body.String(), "`input_biom` (--input-biom): abundance table")

	rec = a.do(t, http.MethodGet, "/api/v1/projects/"+id+"/pipeline/recommendations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"markdown":`)

	rec = a.do(t, http.MethodPost, "/api/v1/projects/"+id+"/steps/stepB/jobs", SubmitStepRequest{
		Params: map[string]any{"input_biom": "/data/table.biom"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"resolved_inputs":{"input_fasta":`)

	off := false
	rec = a.do(t, http.MethodPost, "/api/v1/projects/"+id+"/steps/stepB/jobs", SubmitStepRequest{
		Params:            map[string]any{"input_biom": "/data/table.biom"},
		AutoResolveInputs: &off,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeMissingParameter, errorCode(t, rec))
}

func TestRateLimit(t *testing.T) {
	a := newTestAPI(t, 1)

	rec := a.do(t, http.MethodPost, "/api/v1/jobs", SubmitJobRequest{ToolName: "stepA"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/jobs", SubmitJobRequest{ToolName: "stepA"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, ErrCodeRateLimited, errorCode(t, rec))

	// Чтение не лимитируется.
	rec = a.do(t, http.MethodGet, "/api/v1/jobs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFoundRoute(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := a.do(t, http.MethodGet, "/api/v1/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/tools", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecovery(t *testing.T) {
	h := Recovery(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
