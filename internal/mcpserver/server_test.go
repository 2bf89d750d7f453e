package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Amplicore/internal/service/servicetest"
)

func newTestServer(t *testing.T) (*Server, *servicetest.Env) {
	t.Helper()
	env := servicetest.New(t)
	return New(env.Service, "test", slog.New(slog.NewTextHandler(io.Discard, nil))), env
}

// invoke вызывает инструмент и возвращает текст результата.
func invoke(t *testing.T, s *Server, tool string, args map[string]any) (string, bool) {
	t.Helper()
	h, ok := s.handlers[tool]
	require.True(t, ok, "tool %s not registered", tool)

	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text, res.IsError
	case *mcp.TextContent:
		return c.Text, res.IsError
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return "", false
}

func invokeJSON(t *testing.T, s *Server, tool string, args map[string]any, out any) {
	t.Helper()
	text, isErr := invoke(t, s, tool, args)
	require.False(t, isErr, text)
	require.NoError(t, json.Unmarshal([]byte(text), out), text)
}

func TestToolNames(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, []string{
		"cancel_job",
		"create_project",
		"get_job_results",
		"get_job_status",
		"get_pipeline_recommendations",
		"get_pipeline_status",
		"get_tool_help",
		"list_jobs",
		"list_projects",
		"list_tools",
		"read_log",
		"read_report",
		"submit_job",
		"submit_pipeline_step",
	}, s.ToolNames())
}

func TestProjectPipelineSession(t *testing.T) {
	s, env := newTestServer(t)

	var project struct {
		ProjectID  string `json:"project_id"`
		StepsTotal int    `json:"steps_total"`
	}
	invokeJSON(t, s, "create_project", map[string]any{"name": "soil"}, &project)
	assert.Equal(t, 3, project.StepsTotal)

	md, isErr := invoke(t, s, "get_pipeline_recommendations", map[string]any{"project_id": project.ProjectID})
	require.False(t, isErr)
	assert.Contains(t, md, "### Next recommended step: `stepA`")

	var first struct {
		JobID          uuid.UUID         `json:"job_id"`
		Status         string            `json:"status"`
		ResolvedInputs map[string]string `json:"resolved_inputs"`
	}
	invokeJSON(t, s, "submit_pipeline_step", map[string]any{
		"project_id": project.ProjectID,
		"step_name":  "stepA",
	}, &first)
	assert.Equal(t, "running", first.Status)
	assert.Empty(t, first.ResolvedInputs)
	env.WaitFinished(t, first.JobID)

	var second struct {
		JobID          uuid.UUID         `json:"job_id"`
		ResolvedInputs map[string]string `json:"resolved_inputs"`
	}
	invokeJSON(t, s, "submit_pipeline_step", map[string]any{
		"project_id": project.ProjectID,
		"step_name":  "stepB",
		"params":     map[string]any{"input_biom": "/data/table.biom"},
	}, &second)
	assert.Contains(t, second.ResolvedInputs, "input_fasta")
	env.WaitFinished(t, second.JobID)

	var status struct {
		ProjectName string `json:"project_name"`
		Completed   int    `json:"completed_count"`
		NextStep    string `json:"next_step"`
	}
	invokeJSON(t, s, "get_pipeline_status", map[string]any{"project_id": project.ProjectID}, &status)
	assert.Equal(t, "soil", status.ProjectName)
	assert.Equal(t, 2, status.Completed)
	assert.Empty(t, status.NextStep)

	md, _ = invoke(t, s, "get_pipeline_recommendations", map[string]any{"project_id": project.ProjectID})
	assert.Contains(t, md, "Main pipeline complete!")
	assert.Contains(t, md, "  - `sleeper`")

	var projects []struct {
		StepsCompleted int `json:"steps_completed"`
	}
	invokeJSON(t, s, "list_projects", nil, &projects)
	require.Len(t, projects, 1)
	assert.Equal(t, 2, projects[0].StepsCompleted)

	var jobs []map[string]any
	invokeJSON(t, s, "list_jobs", map[string]any{"project_id": project.ProjectID, "status": "completed"}, &jobs)
	assert.Len(t, jobs, 2)
}

func TestJobTools(t *testing.T) {
	s, env := newTestServer(t)

	var job struct {
		JobID uuid.UUID `json:"job_id"`
	}
	invokeJSON(t, s, "submit_job", map[string]any{"tool_name": "stepA"}, &job)
	env.WaitFinished(t, job.JobID)
	id := job.JobID.String()

	var status struct {
		Status   string `json:"status"`
		ExitCode *int   `json:"exit_code"`
	}
	invokeJSON(t, s, "get_job_status", map[string]any{"job_id": id}, &status)
	assert.Equal(t, "completed", status.Status)
	require.NotNil(t, status.ExitCode)
	assert.Zero(t, *status.ExitCode)

	var results struct {
		OutputFiles map[string]string `json:"output_files"`
	}
	invokeJSON(t, s, "get_job_results", map[string]any{"job_id": id}, &results)
	assert.Contains(t, results.OutputFiles, "html")

	log, isErr := invoke(t, s, "read_log", map[string]any{"job_id": id, "tail_lines": float64(1)})
	require.False(t, isErr)
	assert.True(t, strings.HasPrefix(log, "[log_file: "))

	report, isErr := invoke(t, s, "read_report", map[string]any{"job_id": id})
	require.False(t, isErr)
	assert.Contains(t, report, "[HTML report: ")
	assert.Contains(t, report, "stepA ok")
}

func TestCancelJob(t *testing.T) {
	s, _ := newTestServer(t)

	var job struct {
		JobID uuid.UUID `json:"job_id"`
	}
	invokeJSON(t, s, "submit_job", map[string]any{"tool_name": "sleeper"}, &job)

	var res struct {
		Cancelled bool   `json:"cancelled"`
		Message   string `json:"message"`
	}
	invokeJSON(t, s, "cancel_job", map[string]any{"job_id": job.JobID.String()}, &res)
	assert.True(t, res.Cancelled)
	assert.Equal(t, "SIGTERM sent.", res.Message)
}

func TestCatalogTools(t *testing.T) {
	s, _ := newTestServer(t)

	var tools []struct {
		Name string `json:"name"`
	}
	invokeJSON(t, s, "list_tools", map[string]any{"category": "Optional processing"}, &tools)
	require.Len(t, tools, 1)
	assert.Equal(t, "sleeper", tools[0].Name)

	var help struct {
		Params []struct {
			Name     string `json:"name"`
			Required bool   `json:"required"`
		} `json:"params"`
	}
	invokeJSON(t, s, "get_tool_help", map[string]any{"tool_name": "stepB"}, &help)
	require.Len(t, help.Params, 2)
	assert.True(t, help.Params[0].Required)
}

func TestErrorsAreToolResults(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{"submit_job", map[string]any{"tool_name": "nope"}, "unknown tool"},
		{"submit_job", map[string]any{"tool_name": "stepB"}, "missing required parameter"},
		{"submit_job", map[string]any{}, "invalid argument"},
		{"submit_job", map[string]any{"tool_name": "stepA", "params": "x"}, "params must be an object"},
		{"get_job_status", map[string]any{"job_id": uuid.NewString()}, "job not found"},
		{"get_job_status", map[string]any{"job_id": "bad"}, "invalid argument"},
		{"get_pipeline_status", map[string]any{"project_id": "deadbeef"}, "project not found"},
		{"get_tool_help", map[string]any{"tool_name": "nope"}, "unknown tool"},
		{"submit_pipeline_step", map[string]any{"project_id": "deadbeef", "step_name": "stepA"}, "project not found"},
	}

	for _, tt := range tests {
		t.Run(tt.tool+"/"+tt.want, func(t *testing.T) {
			text, isErr := invoke(t, s, tt.tool, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.want)
		})
	}
}
