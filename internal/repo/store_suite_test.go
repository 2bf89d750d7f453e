package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Amplicore/internal/domain"
)

var suiteSteps = []domain.StepDef{
	{Name: "reads_processing", Order: 1},
	{Name: "remove_chimera", Order: 2},
	{Name: "tree", Order: 3, Optional: true},
}

func newSuiteProject(t *testing.T, ctx context.Context, s Store) *domain.Project {
	t.Helper()
	p := &domain.Project{
		ID:          domain.NewProjectID(),
		Name:        "soil",
		Description: "16S soil samples",
		WorkingDir:  t.TempDir(),
		Metadata:    map[string]any{"owner": "lab"},
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, s.CreateProject(ctx, p, domain.NewPipelineSteps(p.ID, suiteSteps)))
	return p
}

func newSuiteJob(projectID, step string, created time.Time) *domain.Job {
	pid := 4242
	return &domain.Job{
		ID:         uuid.New(),
		ProjectID:  projectID,
		ToolName:   step,
		StepName:   step,
		Params:     map[string]any{"min_amplicon_size": float64(44)},
		Command:    []string{"/usr/bin/python3", "tool.py", "--flag"},
		Status:     domain.JobStatusRunning,
		PID:        &pid,
		StartedAt:  created,
		StdoutPath: "/tmp/stdout.txt",
		StderrPath: "/tmp/stderr.txt",
		LogPath:    "/tmp/frogs.log",
		Outputs:    map[string]string{"biom": "/tmp/out.biom"},
		WorkingDir: "/tmp",
		CreatedAt:  created,
	}
}

// runStoreSuite проверяет одинаковое поведение всех реализаций Store.
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("project round trip", func(t *testing.T) {
		s := open(t)
		p := newSuiteProject(t, ctx, s)

		got, err := s.GetProject(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Name, got.Name)
		assert.Equal(t, p.Description, got.Description)
		assert.Equal(t, p.WorkingDir, got.WorkingDir)
		assert.Equal(t, "lab", got.Metadata["owner"])
		assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("duplicate project", func(t *testing.T) {
		s := open(t)
		p := newSuiteProject(t, ctx, s)
		err := s.CreateProject(ctx, p, nil)
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("missing project", func(t *testing.T) {
		s := open(t)
		_, err := s.GetProject(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.UpdateProjectMetadata(ctx, "nope", nil), ErrNotFound)
	})

	t.Run("update metadata", func(t *testing.T) {
		s := open(t)
		p := newSuiteProject(t, ctx, s)
		require.NoError(t, s.UpdateProjectMetadata(ctx, p.ID, map[string]any{"primer": "V4"}))

		got, err := s.GetProject(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"primer": "V4"}, got.Metadata)
	})

	t.Run("list projects newest first", func(t *testing.T) {
		s := open(t)
		older := newSuiteProject(t, ctx, s)
		newer := &domain.Project{
			ID:         domain.NewProjectID(),
			Name:       "gut",
			WorkingDir: t.TempDir(),
			CreatedAt:  older.CreatedAt.Add(time.Minute),
		}
		require.NoError(t, s.CreateProject(ctx, newer, nil))

		projects, err := s.ListProjects(ctx)
		require.NoError(t, err)
		require.Len(t, projects, 2)
		assert.Equal(t, newer.ID, projects[0].ID)
		assert.Equal(t, older.ID, projects[1].ID)
	})

	t.Run("steps created with project", func(t *testing.T) {
		s := open(t)
		p := newSuiteProject(t, ctx, s)

		steps, err := s.ListSteps(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, steps, 3)
		for i, step := range steps {
			assert.Equal(t, suiteSteps[i].Name, step.Name)
			assert.Equal(t, suiteSteps[i].Order, step.Order)
			assert.Equal(t, suiteSteps[i].Optional, step.Optional)
			assert.Equal(t, domain.StepStatusPending, step.Status)
			assert.Nil(t, step.JobID)
			assert.Nil(t, step.Job)
		}
	})

	t.Run("init steps keeps existing", func(t *testing.T) {
		s := open(t)
		p := newSuiteProject(t, ctx, s)
		require.NoError(t, s.UpdateStep(ctx, p.ID, "reads_processing", domain.StepStatusFailed, nil))

		again := domain.NewPipelineSteps(p.ID, append(suiteSteps, domain.StepDef{Name: "affiliation_OTU", Order: 4}))
		require.NoError(t, s.InitSteps(ctx, again))

		steps, err := s.ListSteps(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, steps, 4)
		assert.Equal(t, domain.StepStatusFailed, steps[0].Status)
		assert.Equal(t, "affiliation_OTU", steps[3].Name)
	})

	t.Run("job round trip", func(t *testing.T) {
		s := open(t)
		p := newSuiteProject(t, ctx, s)
		job := newSuiteJob(p.ID, "reads_processing", time.Now().UTC().Truncate(time.Microsecond))
		require.NoError(t, s.InsertJob(ctx, job))

		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, job.ProjectID, got.ProjectID)
		assert.Equal(t, job.StepName, got.StepName)
		assert.Equal(t, job.Params, got.Params)
		assert.Equal(t, job.Command, got.Command)
		assert.Equal(t, domain.JobStatusRunning, got.Status)
		require.NotNil(t, got.PID)
		assert.Equal(t, 4242, *got.PID)
		assert.Nil(t, got.FinishedAt)
		assert.Nil(t, got.ExitCode)
		assert.Equal(t, job.Outputs, got.Outputs)
		assert.True(t, job.StartedAt.Equal(got.StartedAt))
	})

	t.Run("standalone job", func(t *testing.T) {
		s := open(t)
		job := newSuiteJob("", "", time.Now().UTC())
		job.PID = nil
		require.NoError(t, s.InsertJob(ctx, job))

		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Empty(t, got.ProjectID)
		assert.Empty(t, got.StepName)
		assert.Nil(t, got.PID)
	})

	t.Run("missing job", func(t *testing.T) {
		s := open(t)
		_, err := s.GetJob(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.UpdateJobOutputs(ctx, uuid.New(), nil), ErrNotFound)
	})

	t.Run("list jobs filters", func(t *testing.T) {
		s := open(t)
		p := newSuiteProject(t, ctx, s)
		base := time.Now().UTC()

		first := newSuiteJob(p.ID, "reads_processing", base)
		second := newSuiteJob(p.ID, "remove_chimera", base.Add(time.Second))
		standalone := newSuiteJob("", "", base.Add(2*time.Second))
		for _, j := range []*domain.Job{first, second, standalone} {
			require.NoError(t, s.InsertJob(ctx, j))
		}
		code := 0
		require.NoError(t, s.FinishJob(ctx, first.ID, JobFinish{
			Status: domain.JobStatusCompleted, ExitCode: &code, FinishedAt: base.Add(time.Minute),
		}))

		all, err := s.ListJobs(ctx, JobFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, standalone.ID, all[0].ID)

		inProject, err := s.ListJobs(ctx, JobFilter{ProjectID: p.ID})
		require.NoError(t, err)
		require.Len(t, inProject, 2)
		assert.Equal(t, second.ID, inProject[0].ID)

		running, err := s.ListJobs(ctx, JobFilter{Status: domain.JobStatusRunning})
		require.NoError(t, err)
		assert.Len(t, running, 2)

		limited, err := s.ListJobs(ctx, JobFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("finish job only once", func(t *testing.T) {
		s := open(t)
		job := newSuiteJob("", "", time.Now().UTC())
		require.NoError(t, s.InsertJob(ctx, job))

		cancelled := -15
		finished := time.Now().UTC()
		require.NoError(t, s.FinishJob(ctx, job.ID, JobFinish{
			Status: domain.JobStatusCancelled, ExitCode: &cancelled, FinishedAt: finished,
		}))

		zero := 0
		err := s.FinishJob(ctx, job.ID, JobFinish{
			Status: domain.JobStatusCompleted, ExitCode: &zero, FinishedAt: finished,
		})
		assert.ErrorIs(t, err, ErrInvalidState)

		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCancelled, got.Status)
		require.NotNil(t, got.ExitCode)
		assert.Equal(t, -15, *got.ExitCode)
		require.NotNil(t, got.FinishedAt)

		assert.ErrorIs(t, s.FinishJob(ctx, uuid.New(), JobFinish{Status: domain.JobStatusFailed}), ErrNotFound)
	})

	t.Run("update outputs", func(t *testing.T) {
		s := open(t)
		job := newSuiteJob("", "", time.Now().UTC())
		require.NoError(t, s.InsertJob(ctx, job))
		require.NoError(t, s.UpdateJobOutputs(ctx, job.ID, map[string]string{}))

		got, err := s.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Outputs)
	})

	t.Run("step joined with job", func(t *testing.T) {
		s := open(t)
		p := newSuiteProject(t, ctx, s)
		job := newSuiteJob(p.ID, "reads_processing", time.Now().UTC().Truncate(time.Microsecond))
		require.NoError(t, s.InsertJob(ctx, job))
		require.NoError(t, s.UpdateStep(ctx, p.ID, "reads_processing", domain.StepStatusRunning, &job.ID))

		code := 1
		require.NoError(t, s.FinishJob(ctx, job.ID, JobFinish{
			Status: domain.JobStatusFailed, ExitCode: &code, FinishedAt: time.Now().UTC(),
		}))
		// nil jobID сохраняет прежнюю связь.
		require.NoError(t, s.UpdateStep(ctx, p.ID, "reads_processing", domain.StepStatusFailed, nil))

		steps, err := s.ListSteps(ctx, p.ID)
		require.NoError(t, err)
		step := steps[0]
		assert.Equal(t, domain.StepStatusFailed, step.Status)
		require.NotNil(t, step.JobID)
		assert.Equal(t, job.ID, *step.JobID)
		require.NotNil(t, step.Job)
		assert.Equal(t, domain.JobStatusFailed, step.Job.Status)
		require.NotNil(t, step.Job.ExitCode)
		assert.Equal(t, 1, *step.Job.ExitCode)
		assert.True(t, job.StartedAt.Equal(step.Job.StartedAt))
	})

	t.Run("update unknown step", func(t *testing.T) {
		s := open(t)
		p := newSuiteProject(t, ctx, s)
		err := s.UpdateStep(ctx, p.ID, "nope", domain.StepStatusRunning, nil)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("ping", func(t *testing.T) {
		s := open(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
