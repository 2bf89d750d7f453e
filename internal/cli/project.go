package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewProjectCmd создаёт группу команд для управления проектами.
func NewProjectCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(
		newProjectListCmd(clientFn, outputFn),
		newProjectCreateCmd(clientFn, outputFn),
		newProjectShowCmd(clientFn, outputFn),
		newProjectMetadataCmd(clientFn, outputFn),
	)

	return cmd
}

var projectHeaders = []string{"ID", "NAME", "STEPS", "WORKING_DIR", "CREATED"}

func projectRow(p *ProjectResponse) []string {
	return []string{
		p.ProjectID,
		p.Name,
		fmt.Sprintf("%d/%d", p.StepsCompleted, p.StepsTotal),
		p.WorkingDir,
		p.CreatedAt,
	}
}

func newProjectListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			projects, err := client.ListProjects()
			if err != nil {
				return err
			}

			rows := make([][]string, len(projects))
			for i := range projects {
				rows[i] = projectRow(&projects[i])
			}

			out.Print(projectHeaders, rows, projects)
			return nil
		},
	}
}

func newProjectCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var description string
	var workingDir string
	var metadataJSON string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateProjectRequest{
				Name:        args[0],
				Description: description,
				WorkingDir:  workingDir,
			}
			if metadataJSON != "" {
				if err := json.Unmarshal([]byte(metadataJSON), &req.Metadata); err != nil {
					return fmt.Errorf("invalid --metadata: %w", err)
				}
			}

			project, err := client.CreateProject(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Project created: %s", project.ProjectID))
			out.Print(projectHeaders, [][]string{projectRow(project)}, project)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Project description")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "Project working directory (default: under workspace root)")
	cmd.Flags().StringVar(&metadataJSON, "metadata", "", "Project metadata as a JSON object")

	return cmd
}

func newProjectShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show project with its pipeline steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			project, err := client.GetProject(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(project)
				return nil
			}
			out.Table(projectHeaders, [][]string{projectRow(project)})
			out.Line("")
			out.Table(stepHeaders, stepRows(project.Steps))
			return nil
		},
	}
}

func newProjectMetadataCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "set-metadata ID JSON",
		Short: "Replace project metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var metadata map[string]any
			if err := json.Unmarshal([]byte(args[1]), &metadata); err != nil {
				return fmt.Errorf("invalid metadata: %w", err)
			}

			project, err := client.UpdateProjectMetadata(args[0], metadata)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Metadata updated: %s", project.ProjectID))
			out.Print(projectHeaders, [][]string{projectRow(project)}, project)
			return nil
		},
	}
}

var stepHeaders = []string{"ORDER", "STEP", "STATUS", "OPTIONAL", "JOB_ID"}

func stepRows(steps []StepResponse) [][]string {
	rows := make([][]string, len(steps))
	for i, s := range steps {
		jobID := s.JobID
		if jobID == "" {
			jobID = "-"
		}
		rows[i] = []string{strconv.Itoa(s.Order), s.Name, s.Status, strconv.FormatBool(s.Optional), jobID}
	}
	return rows
}
