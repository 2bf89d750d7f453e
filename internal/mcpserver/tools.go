package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/pipeline"
	"github.com/shaiso/Amplicore/internal/service"
	"github.com/shaiso/Amplicore/internal/telemetry"
)

func (s *Server) registerTools() {
	tools := []struct {
		tool    mcp.Tool
		handler handler
	}{
		{mcp.NewTool("submit_job",
			mcp.WithDescription("Submit any FROGS tool as a background job. Returns immediately; poll get_job_status."),
			mcp.WithString("tool_name", mcp.Required(), mcp.Description("FROGS tool name (see list_tools)")),
			mcp.WithObject("params", mcp.Description("Parameters keyed by snake_case name, e.g. {\"input_fasta\": \"/data/seqs.fasta\", \"nb_cpus\": 4}")),
			mcp.WithString("project_id", mcp.Description("Optional project to attach the job to")),
		), s.submitJob},

		{mcp.NewTool("get_job_status",
			mcp.WithDescription("Get the current status, pid, elapsed seconds and exit code of a job."),
			mcp.WithString("job_id", mcp.Required()),
		), s.getJobStatus},

		{mcp.NewTool("get_job_results",
			mcp.WithDescription("Get output files and the last 50 log lines of a job."),
			mcp.WithString("job_id", mcp.Required()),
		), s.getJobResults},

		{mcp.NewTool("list_jobs",
			mcp.WithDescription("List jobs, newest first, optionally filtered by project and status."),
			mcp.WithString("project_id", mcp.Description("Only jobs of this project")),
			mcp.WithString("status", mcp.Description("running, completed, failed, cancelled or orphaned")),
		), s.listJobs},

		{mcp.NewTool("cancel_job",
			mcp.WithDescription("Cancel a running job by sending SIGTERM."),
			mcp.WithString("job_id", mcp.Required()),
		), s.cancelJob},

		{mcp.NewTool("create_project",
			mcp.WithDescription("Create an analysis project and initialize pipeline step tracking."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Human-readable project name")),
			mcp.WithString("description"),
			mcp.WithString("working_dir", mcp.Description("Defaults to <workspace>/<project_id>")),
		), s.createProject},

		{mcp.NewTool("submit_pipeline_step",
			mcp.WithDescription("Submit a pipeline step for a project. Input files are filled from completed steps; explicit params win."),
			mcp.WithString("project_id", mcp.Required()),
			mcp.WithString("step_name", mcp.Required(), mcp.Description("Pipeline step, e.g. remove_chimera")),
			mcp.WithObject("params", mcp.Description("Explicit parameters")),
			mcp.WithBoolean("auto_resolve_inputs", mcp.DefaultBool(true)),
		), s.submitPipelineStep},

		{mcp.NewTool("get_pipeline_status",
			mcp.WithDescription("Get every pipeline step of a project with counts and the next step."),
			mcp.WithString("project_id", mcp.Required()),
		), s.getPipelineStatus},

		{mcp.NewTool("get_pipeline_recommendations",
			mcp.WithDescription("Markdown guide: status table, next step, resolved inputs, missing parameters and a ready submit call."),
			mcp.WithString("project_id", mcp.Required()),
		), s.getPipelineRecommendations},

		{mcp.NewTool("list_tools",
			mcp.WithDescription("List FROGS tools with descriptions and categories."),
			mcp.WithString("category", mcp.Description("e.g. Core pipeline, Statistical analysis, Format conversion")),
		), s.listTools},

		{mcp.NewTool("get_tool_help",
			mcp.WithDescription("Get the parameters of a FROGS tool."),
			mcp.WithString("tool_name", mcp.Required()),
		), s.getToolHelp},

		{mcp.NewTool("list_projects",
			mcp.WithDescription("List analysis projects with completed and total step counts."),
		), s.listProjects},

		{mcp.NewTool("read_log",
			mcp.WithDescription("Read the tail of a job log (FROGS log, then stderr, then stdout)."),
			mcp.WithString("job_id", mcp.Required()),
			mcp.WithNumber("tail_lines", mcp.DefaultNumber(100)),
		), s.readLog},

		{mcp.NewTool("read_report",
			mcp.WithDescription("Read the HTML report (tags stripped) or the first TSV output of a job."),
			mcp.WithString("job_id", mcp.Required()),
		), s.readReport},
	}

	s.handlers = make(map[string]handler, len(tools))
	for _, t := range tools {
		h := withTransport(t.tool.Name, t.handler)
		s.mcp.AddTool(t.tool, h)
		s.handlers[t.tool.Name] = h
	}
}

func (s *Server) submitJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "submit_job", func() (*service.JobView, error) {
		tool, err := req.RequireString("tool_name")
		if err != nil {
			return nil, invalid(err)
		}
		params, err := objectArg(req, "params")
		if err != nil {
			return nil, err
		}
		return s.svc.SubmitJob(ctx, service.SubmitJobRequest{
			Tool:      tool,
			Params:    params,
			ProjectID: req.GetString("project_id", ""),
		})
	})
}

func (s *Server) getJobStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "get_job_status", func() (*service.JobView, error) {
		id, err := req.RequireString("job_id")
		if err != nil {
			return nil, invalid(err)
		}
		return s.svc.JobStatus(ctx, id)
	})
}

func (s *Server) getJobResults(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "get_job_results", func() (*service.JobResults, error) {
		id, err := req.RequireString("job_id")
		if err != nil {
			return nil, invalid(err)
		}
		return s.svc.JobResults(ctx, id)
	})
}

func (s *Server) listJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "list_jobs", func() ([]service.JobView, error) {
		return s.svc.ListJobs(ctx, service.JobQuery{
			ProjectID: req.GetString("project_id", ""),
			Status:    domain.JobStatus(req.GetString("status", "")),
		})
	})
}

func (s *Server) cancelJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "cancel_job", func() (*service.CancelResult, error) {
		id, err := req.RequireString("job_id")
		if err != nil {
			return nil, invalid(err)
		}
		return s.svc.CancelJob(ctx, id)
	})
}

func (s *Server) createProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "create_project", func() (*service.ProjectDetail, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return nil, invalid(err)
		}
		return s.svc.CreateProject(ctx, service.CreateProjectRequest{
			Name:        name,
			Description: req.GetString("description", ""),
			WorkingDir:  req.GetString("working_dir", ""),
		})
	})
}

func (s *Server) submitPipelineStep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "submit_pipeline_step", func() (*service.StepSubmission, error) {
		projectID, err := req.RequireString("project_id")
		if err != nil {
			return nil, invalid(err)
		}
		step, err := req.RequireString("step_name")
		if err != nil {
			return nil, invalid(err)
		}
		params, err := objectArg(req, "params")
		if err != nil {
			return nil, err
		}
		return s.svc.SubmitStep(ctx, service.SubmitStepRequest{
			ProjectID:   projectID,
			Step:        step,
			Params:      params,
			AutoResolve: req.GetBool("auto_resolve_inputs", true),
		})
	})
}

func (s *Server) getPipelineStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "get_pipeline_status", func() (*service.PipelineStatus, error) {
		projectID, err := req.RequireString("project_id")
		if err != nil {
			return nil, invalid(err)
		}
		return s.svc.PipelineStatus(ctx, projectID)
	})
}

func (s *Server) getPipelineRecommendations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return text(s, "get_pipeline_recommendations", func() (string, error) {
		projectID, err := req.RequireString("project_id")
		if err != nil {
			return "", invalid(err)
		}
		var rec *pipeline.Recommendation
		if rec, err = s.svc.Recommendations(ctx, projectID); err != nil {
			return "", err
		}
		return rec.Markdown(), nil
	})
}

func (s *Server) listTools(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "list_tools", func() ([]service.ToolSummary, error) {
		return s.svc.ListTools(req.GetString("category", "")), nil
	})
}

func (s *Server) getToolHelp(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "get_tool_help", func() (*domain.ToolSpec, error) {
		name, err := req.RequireString("tool_name")
		if err != nil {
			return nil, invalid(err)
		}
		return s.svc.ToolHelp(name)
	})
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(s, "list_projects", func() ([]service.ProjectView, error) {
		return s.svc.ListProjects(ctx)
	})
}

func (s *Server) readLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return text(s, "read_log", func() (string, error) {
		id, err := req.RequireString("job_id")
		if err != nil {
			return "", invalid(err)
		}
		return s.svc.ReadLog(ctx, id, req.GetInt("tail_lines", 0))
	})
}

func (s *Server) readReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return text(s, "read_report", func() (string, error) {
		id, err := req.RequireString("job_id")
		if err != nil {
			return "", invalid(err)
		}
		return s.svc.ReadReport(ctx, id)
	})
}

// withTransport помечает контекст вызова для логов нижних слоёв.
func withTransport(name string, h handler) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return h(telemetry.WithAttrs(ctx, "transport", "mcp", "mcp_tool", name), req)
	}
}
