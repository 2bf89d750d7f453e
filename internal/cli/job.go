package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Amplicore/internal/mq"
)

// NewJobCmd создаёт группу команд для управления jobs.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage jobs",
	}

	cmd.AddCommand(
		newJobListCmd(clientFn, outputFn),
		newJobSubmitCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobResultsCmd(clientFn, outputFn),
		newJobLogCmd(clientFn, outputFn),
		newJobReportCmd(clientFn, outputFn),
		newJobCancelCmd(clientFn, outputFn),
		newJobWatchCmd(outputFn),
	)

	return cmd
}

var jobHeaders = []string{"ID", "TOOL", "STEP", "STATUS", "EXIT", "ELAPSED", "CREATED"}

func jobRow(j *JobResponse) []string {
	step := j.StepName
	if step == "" {
		step = "-"
	}
	return []string{j.JobID, j.ToolName, step, j.Status, formatInt(j.ExitCode), formatElapsed(j.ElapsedSeconds), j.CreatedAt}
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var projectID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListJobs(ListJobsOpts{
				ProjectID: projectID,
				Status:    status,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(jobs))
			for i := range jobs {
				rows[i] = jobRow(&jobs[i])
			}

			out.Print(jobHeaders, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "Filter by project ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (running, completed, failed, cancelled, orphaned)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newJobSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var projectID string
	var params []string
	var paramsJSON string

	cmd := &cobra.Command{
		Use:   "submit TOOL",
		Short: "Run a tool as a background job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			p, err := parseParams(params, paramsJSON)
			if err != nil {
				return err
			}

			job, err := client.SubmitJob(SubmitJobRequest{
				ToolName:  args[0],
				Params:    p,
				ProjectID: projectID,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job submitted: %s", job.JobID))
			out.Print(jobHeaders, [][]string{jobRow(job)}, job)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "Attach the job to a project")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Tool parameter as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&paramsJSON, "params-json", "", "Tool parameters as a JSON object")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob(args[0])
			if err != nil {
				return err
			}

			out.Print(jobHeaders, [][]string{jobRow(job)}, job)
			return nil
		},
	}
}

func newJobResultsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "results ID",
		Short: "Show job output files and log tail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			res, err := client.JobResults(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(res)
				return nil
			}

			out.Line(fmt.Sprintf("Job %s: %s (exit %s)", res.JobID, res.Status, formatInt(res.ExitCode)))
			out.Line("")

			keys := make([]string, 0, len(res.OutputFiles))
			for k := range res.OutputFiles {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			rows := make([][]string, len(keys))
			for i, k := range keys {
				rows[i] = []string{k, res.OutputFiles[k]}
			}
			out.Table([]string{"OUTPUT", "PATH"}, rows)

			if res.LogTail != "" {
				out.Line("")
				out.Text(res.LogTail)
			}
			return nil
		},
	}
}

func newJobLogCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "log ID",
		Short: "Print the tail of the job log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := clientFn().JobLog(args[0], tail)
			if err != nil {
				return err
			}
			outputFn().Text(log)
			return nil
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 0, "Number of lines (default: server default)")

	return cmd
}

func newJobReportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "report ID",
		Short: "Print the job report as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := clientFn().JobReport(args[0])
			if err != nil {
				return err
			}
			outputFn().Text(report)
			return nil
		},
	}
}

func newJobCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Send SIGTERM to a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			res, err := client.CancelJob(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(res)
				return nil
			}
			if res.Cancelled {
				out.Success(fmt.Sprintf("Job cancelled: %s", res.JobID))
			} else {
				out.Success(res.Message)
			}
			return nil
		},
	}
}

func newJobWatchCmd(outputFn func() *Output) *cobra.Command {
	var amqpURL string
	var projectID string
	var jobID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream job events from RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			if amqpURL == "" {
				return fmt.Errorf("RabbitMQ URL is required (--amqp-url or RABBITMQ_URL)")
			}
			out := outputFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			conn, err := mq.NewConnection(amqpURL, "amplicore-cli", logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := mq.SetupTopology(ctx, conn); err != nil {
				return err
			}

			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Handler: eventPrinter(out, projectID, jobID),
			})

			out.Success("Watching job events, press Ctrl+C to stop")
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&amqpURL, "amqp-url", os.Getenv("RABBITMQ_URL"), "RabbitMQ URL")
	cmd.Flags().StringVar(&projectID, "project-id", "", "Only events of this project")
	cmd.Flags().StringVar(&jobID, "job-id", "", "Only events of this job")

	return cmd
}

// eventPrinter печатает события jobs, отфильтрованные по проекту и job.
func eventPrinter(out *Output, projectID, jobID string) mq.Handler {
	return func(_ context.Context, d *mq.Delivery) error {
		ev, err := mq.ParsePayload[mq.JobEventPayload](&d.Message)
		if err != nil {
			return err
		}
		if projectID != "" && ev.ProjectID != projectID {
			return nil
		}
		if jobID != "" && ev.JobID.String() != jobID {
			return nil
		}

		if out.jsonMode {
			out.JSON(d.Message)
			return nil
		}

		step := ev.StepName
		if step == "" {
			step = "-"
		}
		out.Line(fmt.Sprintf("%s  %-14s %s  %s  %s  %s  exit=%s",
			d.Message.Timestamp.Local().Format(time.DateTime),
			d.Message.Type,
			shortID(ev.JobID.String()),
			ev.ToolName,
			step,
			ev.Status,
			formatInt(ev.ExitCode),
		))
		return nil
	}
}
