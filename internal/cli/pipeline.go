package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewPipelineCmd создаёт группу команд для работы с pipeline проекта.
func NewPipelineCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Inspect and advance a project pipeline",
	}

	cmd.AddCommand(
		newPipelineStatusCmd(clientFn, outputFn),
		newPipelineNextCmd(clientFn, outputFn),
		newPipelineInputsCmd(clientFn, outputFn),
		newPipelineRunCmd(clientFn, outputFn),
	)

	return cmd
}

func newPipelineStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status PROJECT_ID",
		Short: "Show pipeline step statuses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.PipelineStatus(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(status)
				return nil
			}
			out.Table(stepHeaders, stepRows(status.Steps))
			out.Line("")
			out.Line(fmt.Sprintf("%s: %d/%d completed, %d running, %d failed",
				status.ProjectName, status.Completed, status.Total, status.Running, status.Failed))
			if status.NextStep != "" {
				out.Line("Next step: " + status.NextStep)
			}
			return nil
		},
	}
}

func newPipelineNextCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "next PROJECT_ID",
		Short: "Recommend the next pipeline step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			md, err := client.Recommendations(args[0])
			if err != nil {
				return err
			}
			out.Text(md)
			return nil
		},
	}
}

func newPipelineInputsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "inputs PROJECT_ID STEP",
		Short: "Show inputs resolved from earlier step outputs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			inputs, err := client.ResolveInputs(args[0], args[1])
			if err != nil {
				return err
			}

			names := make([]string, 0, len(inputs))
			for name := range inputs {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([][]string, len(names))
			for i, name := range names {
				rows[i] = []string{name, inputs[name]}
			}

			out.Print([]string{"PARAM", "PATH"}, rows, inputs)
			return nil
		},
	}
}

func newPipelineRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var params []string
	var paramsJSON string
	var noResolve bool

	cmd := &cobra.Command{
		Use:   "run PROJECT_ID STEP",
		Short: "Submit a pipeline step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			p, err := parseParams(params, paramsJSON)
			if err != nil {
				return err
			}

			autoResolve := !noResolve
			job, err := client.SubmitStep(args[0], args[1], SubmitStepRequest{
				Params:            p,
				AutoResolveInputs: &autoResolve,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Step %s submitted: %s", args[1], job.JobID))
			out.Print(jobHeaders, [][]string{jobRow(job)}, job)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "Tool parameter as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&paramsJSON, "params-json", "", "Tool parameters as a JSON object")
	cmd.Flags().BoolVar(&noResolve, "no-auto-resolve", false, "Do not fill inputs from earlier step outputs")

	return cmd
}
