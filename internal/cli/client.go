package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из service, CLI не импортирует слой API) ---

// ProjectResponse — проект из API.
type ProjectResponse struct {
	ProjectID      string         `json:"project_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	WorkingDir     string         `json:"working_dir"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      string         `json:"created_at"`
	StepsCompleted int            `json:"steps_completed"`
	StepsTotal     int            `json:"steps_total"`
	Steps          []StepResponse `json:"pipeline_steps,omitempty"`
}

// StepResponse — шаг pipeline из API.
type StepResponse struct {
	Name     string `json:"step_name"`
	Order    int    `json:"step_order"`
	Optional bool   `json:"is_optional"`
	Status   string `json:"status"`
	JobID    string `json:"job_id,omitempty"`
}

// JobResponse — job из API.
type JobResponse struct {
	JobID          string            `json:"job_id"`
	ToolName       string            `json:"tool_name"`
	StepName       string            `json:"step_name,omitempty"`
	ProjectID      string            `json:"project_id,omitempty"`
	Status         string            `json:"status"`
	PID            *int              `json:"pid,omitempty"`
	ElapsedSeconds *float64          `json:"elapsed_seconds"`
	ExitCode       *int              `json:"exit_code"`
	WorkingDir     string            `json:"working_dir"`
	Command        []string          `json:"command,omitempty"`
	CreatedAt      string            `json:"created_at"`
	ResolvedInputs map[string]string `json:"resolved_inputs,omitempty"`
}

// JobResultsResponse — выходы job из API.
type JobResultsResponse struct {
	JobID       string            `json:"job_id"`
	Status      string            `json:"status"`
	ExitCode    *int              `json:"exit_code"`
	OutputFiles map[string]string `json:"output_files"`
	LogTail     string            `json:"log_tail"`
	WorkingDir  string            `json:"working_dir"`
}

// CancelResponse — результат отмены из API.
type CancelResponse struct {
	JobID     string `json:"job_id"`
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"message"`
}

// ToolResponse — инструмент из API.
type ToolResponse struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	PipelineStep string          `json:"pipeline_step"`
	Optional     bool            `json:"is_optional"`
	ScriptPath   string          `json:"script_path"`
	Positional   string          `json:"positional,omitempty"`
	Params       []ParamResponse `json:"params,omitempty"`
}

// ParamResponse — параметр инструмента из API.
type ParamResponse struct {
	Name       string `json:"name"`
	Flag       string `json:"flag,omitempty"`
	Type       string `json:"type"`
	Required   bool   `json:"required"`
	Default    any    `json:"default,omitempty"`
	InputFile  bool   `json:"input_file"`
	OutputFile bool   `json:"output_file"`
	Help       string `json:"help,omitempty"`
}

// PipelineResponse — состояние pipeline из API.
type PipelineResponse struct {
	ProjectID   string         `json:"project_id"`
	ProjectName string         `json:"project_name"`
	Steps       []StepResponse `json:"steps"`
	Completed   int            `json:"completed_count"`
	Failed      int            `json:"failed_count"`
	Running     int            `json:"running_count"`
	Pending     int            `json:"pending_count"`
	Total       int            `json:"total_count"`
	NextStep    string         `json:"next_step,omitempty"`
}

// --- Request types ---

// CreateProjectRequest — создание проекта.
type CreateProjectRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	WorkingDir  string         `json:"working_dir,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SubmitJobRequest — запуск инструмента.
type SubmitJobRequest struct {
	ToolName  string         `json:"tool_name"`
	Params    map[string]any `json:"params,omitempty"`
	ProjectID string         `json:"project_id,omitempty"`
}

// SubmitStepRequest — запуск шага pipeline.
type SubmitStepRequest struct {
	Params            map[string]any `json:"params,omitempty"`
	AutoResolveInputs *bool          `json:"auto_resolve_inputs,omitempty"`
}

// ListJobsOpts — параметры фильтрации jobs.
type ListJobsOpts struct {
	ProjectID string
	Status    string
	Limit     int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Amplicore API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Projects ---

// ListProjects возвращает все проекты.
func (c *Client) ListProjects() ([]ProjectResponse, error) {
	var projects []ProjectResponse
	err := c.list("/api/v1/projects", nil, &projects)
	return projects, err
}

// CreateProject создаёт проект.
func (c *Client) CreateProject(req CreateProjectRequest) (*ProjectResponse, error) {
	var project ProjectResponse
	err := c.post("/api/v1/projects", req, &project)
	return &project, err
}

// GetProject возвращает проект с шагами pipeline.
func (c *Client) GetProject(id string) (*ProjectResponse, error) {
	var project ProjectResponse
	err := c.get("/api/v1/projects/"+url.PathEscape(id), &project)
	return &project, err
}

// UpdateProjectMetadata заменяет метаданные проекта.
func (c *Client) UpdateProjectMetadata(id string, metadata map[string]any) (*ProjectResponse, error) {
	var project ProjectResponse
	body := map[string]any{"metadata": metadata}
	err := c.patch("/api/v1/projects/"+url.PathEscape(id), body, &project)
	return &project, err
}

// --- Pipeline ---

// PipelineStatus возвращает состояние pipeline проекта.
func (c *Client) PipelineStatus(projectID string) (*PipelineResponse, error) {
	var status PipelineResponse
	err := c.get("/api/v1/projects/"+url.PathEscape(projectID)+"/pipeline", &status)
	return &status, err
}

// Recommendations возвращает рекомендацию следующего шага в Markdown.
func (c *Client) Recommendations(projectID string) (string, error) {
	params := url.Values{"format": {"markdown"}}
	return c.text("/api/v1/projects/"+url.PathEscape(projectID)+"/pipeline/recommendations", params)
}

// ResolveInputs возвращает входы шага, найденные среди выходов проекта.
func (c *Client) ResolveInputs(projectID, step string) (map[string]string, error) {
	var inputs map[string]string
	err := c.get("/api/v1/projects/"+url.PathEscape(projectID)+"/steps/"+url.PathEscape(step)+"/inputs", &inputs)
	return inputs, err
}

// SubmitStep запускает шаг pipeline.
func (c *Client) SubmitStep(projectID, step string, req SubmitStepRequest) (*JobResponse, error) {
	var job JobResponse
	err := c.post("/api/v1/projects/"+url.PathEscape(projectID)+"/steps/"+url.PathEscape(step)+"/jobs", req, &job)
	return &job, err
}

// --- Jobs ---

// ListJobs возвращает jobs с фильтрацией.
func (c *Client) ListJobs(opts ListJobsOpts) ([]JobResponse, error) {
	params := url.Values{}
	if opts.ProjectID != "" {
		params.Set("project_id", opts.ProjectID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var jobs []JobResponse
	err := c.list("/api/v1/jobs", params, &jobs)
	return jobs, err
}

// SubmitJob запускает инструмент.
func (c *Client) SubmitJob(req SubmitJobRequest) (*JobResponse, error) {
	var job JobResponse
	err := c.post("/api/v1/jobs", req, &job)
	return &job, err
}

// GetJob возвращает состояние job.
func (c *Client) GetJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.get("/api/v1/jobs/"+url.PathEscape(id), &job)
	return &job, err
}

// JobResults возвращает выходы job.
func (c *Client) JobResults(id string) (*JobResultsResponse, error) {
	var res JobResultsResponse
	err := c.get("/api/v1/jobs/"+url.PathEscape(id)+"/results", &res)
	return &res, err
}

// JobLog возвращает хвост лога job. tail <= 0 означает значение сервера.
func (c *Client) JobLog(id string, tail int) (string, error) {
	params := url.Values{}
	if tail > 0 {
		params.Set("tail", strconv.Itoa(tail))
	}
	return c.text("/api/v1/jobs/"+url.PathEscape(id)+"/log", params)
}

// JobReport возвращает текст отчёта job.
func (c *Client) JobReport(id string) (string, error) {
	return c.text("/api/v1/jobs/"+url.PathEscape(id)+"/report", nil)
}

// CancelJob отменяет job.
func (c *Client) CancelJob(id string) (*CancelResponse, error) {
	var res CancelResponse
	err := c.post("/api/v1/jobs/"+url.PathEscape(id)+"/cancel", nil, &res)
	return &res, err
}

// --- Tools ---

// ListTools возвращает инструменты каталога. category пустая — все.
func (c *Client) ListTools(category string) ([]ToolResponse, error) {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}

	var tools []ToolResponse
	err := c.list("/api/v1/tools", params, &tools)
	return tools, err
}

// GetTool возвращает описание инструмента с параметрами.
func (c *Client) GetTool(name string) (*ToolResponse, error) {
	var tool ToolResponse
	err := c.get("/api/v1/tools/"+url.PathEscape(name), &tool)
	return &tool, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) patch(path string, body any, result any) error {
	return c.doData(http.MethodPatch, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

// text выполняет GET и возвращает тело ответа как есть.
func (c *Client) text(path string, params url.Values) (string, error) {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return "", err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(data), nil
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
