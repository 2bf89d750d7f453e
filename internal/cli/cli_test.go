package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Amplicore/internal/api"
	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/mq"
	"github.com/shaiso/Amplicore/internal/service/servicetest"
)

type testServer struct {
	env    *servicetest.Env
	client *Client
	url    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	env := servicetest.New(t)
	h := api.NewHandler(api.Config{
		Service: env.Service,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &testServer{env: env, client: NewClient(srv.URL), url: srv.URL}
}

// run выполняет команду CLI и возвращает stdout и stderr.
func (s *testServer) run(t *testing.T, jsonMode bool, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	clientFn := func() *Client { return NewClient(s.url) }
	outputFn := func() *Output { return NewOutputTo(jsonMode, &stdout, &stderr) }

	root := &cobra.Command{Use: "amplicore", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		NewProjectCmd(clientFn, outputFn),
		NewPipelineCmd(clientFn, outputFn),
		NewJobCmd(clientFn, outputFn),
		NewToolCmd(clientFn, outputFn),
	)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func (s *testServer) waitFinished(t *testing.T, jobID string) {
	t.Helper()
	id, err := uuid.Parse(jobID)
	require.NoError(t, err)
	s.env.WaitFinished(t, id)
}

func TestClient_PipelineSession(t *testing.T) {
	s := newTestServer(t)
	c := s.client

	project, err := c.CreateProject(CreateProjectRequest{Name: "demo"})
	require.NoError(t, err)
	require.NotEmpty(t, project.ProjectID)
	assert.Len(t, project.Steps, 3)

	projects, err := c.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "demo", projects[0].Name)
	assert.Equal(t, 0, projects[0].StepsCompleted)

	status, err := c.PipelineStatus(project.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, "stepA", status.NextStep)
	assert.Equal(t, "demo", status.ProjectName)

	job, err := c.SubmitStep(project.ProjectID, "stepA", SubmitStepRequest{})
	require.NoError(t, err)
	assert.Equal(t, "stepA", job.StepName)
	s.waitFinished(t, job.JobID)

	res, err := c.JobResults(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Status)
	assert.Contains(t, res.OutputFiles, "fasta")

	log, err := c.JobLog(job.JobID, 10)
	require.NoError(t, err)
	assert.Contains(t, log, "stepA done")

	report, err := c.JobReport(job.JobID)
	require.NoError(t, err)
	assert.Contains(t, report, "[HTML report:")
	assert.Contains(t, report, "stepA ok")

	inputs, err := c.ResolveInputs(project.ProjectID, "stepB")
	require.NoError(t, err)
	assert.Equal(t, res.OutputFiles["fasta"], inputs["input_fasta"])

	md, err := c.Recommendations(project.ProjectID)
	require.NoError(t, err)
	assert.Contains(t, md, "### Next recommended step: `stepB`")
	assert.Contains(t, md, "`input_biom`")

	jobs, err := c.ListJobs(ListJobsOpts{ProjectID: project.ProjectID})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.JobID, jobs[0].JobID)

	updated, err := c.UpdateProjectMetadata(project.ProjectID, map[string]any{"run": "r1"})
	require.NoError(t, err)
	assert.Equal(t, "r1", updated.Metadata["run"])
}

func TestClient_Errors(t *testing.T) {
	s := newTestServer(t)
	c := s.client

	_, err := c.GetProject("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")

	_, err = c.SubmitJob(SubmitJobRequest{ToolName: "no_such_tool"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN_TOOL")

	_, err = c.SubmitJob(SubmitJobRequest{ToolName: "stepB"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING_PARAMETER")

	_, err = c.JobLog("not-a-uuid", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD_REQUEST")

	_, err = NewClient("http://127.0.0.1:1").ListProjects()
	require.Error(t, err)
}

func TestClient_Tools(t *testing.T) {
	s := newTestServer(t)

	tools, err := s.client.ListTools("Core pipeline")
	require.NoError(t, err)
	require.Len(t, tools, 2)

	tool, err := s.client.GetTool("stepB")
	require.NoError(t, err)
	require.Len(t, tool.Params, 2)
	assert.True(t, tool.Params[0].Required)
	assert.True(t, tool.Params[0].InputFile)
}

func TestCommands_ProjectAndPipeline(t *testing.T) {
	s := newTestServer(t)

	stdout, stderr, err := s.run(t, true, "project", "create", "demo", "--metadata", `{"owner":"lab"}`)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Project created:")

	var project ProjectResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &project))
	assert.Equal(t, "lab", project.Metadata["owner"])

	stdout, _, err = s.run(t, false, "project", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ID")
	assert.Contains(t, stdout, "0/3")

	stdout, _, err = s.run(t, false, "pipeline", "status", project.ProjectID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Next step: stepA")

	stdout, stderr, err = s.run(t, true, "pipeline", "run", project.ProjectID, "stepA")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Step stepA submitted")

	var job JobResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &job))
	s.waitFinished(t, job.JobID)

	stdout, _, err = s.run(t, false, "pipeline", "next", project.ProjectID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Next recommended step: `stepB`")

	stdout, _, err = s.run(t, false, "project", "show", project.ProjectID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "completed")

	_, _, err = s.run(t, false, "project", "set-metadata", project.ProjectID, "not json")
	require.Error(t, err)
}

func TestCommands_Jobs(t *testing.T) {
	s := newTestServer(t)

	stdout, _, err := s.run(t, true, "job", "submit", "sleeper")
	require.NoError(t, err)
	var job JobResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &job))
	assert.Equal(t, "running", job.Status)

	stdout, _, err = s.run(t, false, "job", "list", "--status", "running")
	require.NoError(t, err)
	assert.Contains(t, stdout, job.JobID)

	_, stderr, err := s.run(t, false, "job", "cancel", job.JobID)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Job cancelled")

	_, stderr, err = s.run(t, false, "job", "cancel", job.JobID)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Process not found")

	stdout, _, err = s.run(t, false, "job", "show", job.JobID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "cancelled")

	_, _, err = s.run(t, false, "job", "submit", "stepA", "--param", "broken")
	require.Error(t, err)
}

func TestCommands_Tools(t *testing.T) {
	s := newTestServer(t)

	stdout, _, err := s.run(t, false, "tool", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "stepA")
	assert.Contains(t, stdout, "sleeper")

	stdout, _, err = s.run(t, false, "tool", "help", "stepB")
	require.NoError(t, err)
	assert.Contains(t, stdout, "--input-fasta")
	assert.Contains(t, stdout, "abundance table")
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		kvs     []string
		json    string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty", want: nil},
		{
			name: "typed values",
			kvs:  []string{"nb_cpus=4", "debug=true", "input=a.fastq", "files=[\"a\",\"b\"]"},
			want: map[string]any{
				"nb_cpus": float64(4),
				"debug":   true,
				"input":   "a.fastq",
				"files":   []any{"a", "b"},
			},
		},
		{
			name: "quoted string kept verbatim",
			kvs:  []string{"name=\"x\""},
			want: map[string]any{"name": "\"x\""},
		},
		{
			name: "kv overrides json",
			kvs:  []string{"a=2"},
			json: `{"a": 1, "b": "x"}`,
			want: map[string]any{"a": float64(2), "b": "x"},
		},
		{name: "value with equals", kvs: []string{"expr=a=b"}, want: map[string]any{"expr": "a=b"}},
		{name: "missing equals", kvs: []string{"broken"}, wantErr: true},
		{name: "empty key", kvs: []string{"=x"}, wantErr: true},
		{name: "bad json", json: "{", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.kvs, tt.json)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventPrinter(t *testing.T) {
	jobID := uuid.New()
	code := 0
	msg := mq.Message{
		ID:   "m1",
		Type: mq.MessageTypeJobFinished,
		Payload: mq.JobEventPayload{
			JobID:     jobID,
			ProjectID: "p1",
			StepName:  "remove_chimera",
			ToolName:  "remove_chimera",
			Status:    domain.JobStatusCompleted,
			ExitCode:  &code,
		},
		Timestamp: time.Now().UTC(),
	}

	tests := []struct {
		name      string
		projectID string
		jobID     string
		printed   bool
	}{
		{name: "no filter", printed: true},
		{name: "matching project", projectID: "p1", printed: true},
		{name: "other project", projectID: "p2", printed: false},
		{name: "matching job", jobID: jobID.String(), printed: true},
		{name: "other job", jobID: uuid.NewString(), printed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := eventPrinter(NewOutputTo(false, &buf, io.Discard), tt.projectID, tt.jobID)
			require.NoError(t, h(context.Background(), &mq.Delivery{Message: msg}))

			if !tt.printed {
				assert.Empty(t, buf.String())
				return
			}
			line := buf.String()
			assert.Contains(t, line, "job.finished")
			assert.Contains(t, line, jobID.String()[:8])
			assert.Contains(t, line, "remove_chimera")
			assert.True(t, strings.HasSuffix(line, "exit=0\n"), line)
		})
	}
}

func TestOutput_Formatting(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutputTo(false, &buf, io.Discard)
	out.Table([]string{"ID", "STEP", "EXIT"}, [][]string{{"j1", "", "0"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"j1", "-", "0"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"--", "----", "----"}, strings.Fields(lines[1]))

	buf.Reset()
	out = NewOutputTo(true, &buf, io.Discard)
	var jobs []JobResponse
	out.Print(nil, nil, jobs)
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	out.JSON(map[string]string{"md": "<b>&</b>"})
	assert.Contains(t, buf.String(), "<b>&</b>")
}
