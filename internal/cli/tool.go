package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewToolCmd создаёт группу команд для просмотра каталога инструментов.
func NewToolCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Browse the tool catalog",
	}

	cmd.AddCommand(
		newToolListCmd(clientFn, outputFn),
		newToolHelpCmd(clientFn, outputFn),
	)

	return cmd
}

func newToolListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tools, err := client.ListTools(category)
			if err != nil {
				return err
			}

			headers := []string{"NAME", "CATEGORY", "STEP", "OPTIONAL", "DESCRIPTION"}
			rows := make([][]string, len(tools))
			for i, t := range tools {
				rows[i] = []string{t.Name, t.Category, t.PipelineStep, strconv.FormatBool(t.Optional), t.Description}
			}

			out.Print(headers, rows, tools)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category")

	return cmd
}

func newToolHelpCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "help NAME",
		Short: "Show tool parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tool, err := client.GetTool(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(tool)
				return nil
			}

			out.Line(fmt.Sprintf("%s: %s", tool.Name, tool.Description))
			out.Line("Script: " + tool.ScriptPath)
			if tool.Positional != "" {
				out.Line("Positional: " + tool.Positional)
			}
			out.Line("")

			headers := []string{"PARAM", "FLAG", "TYPE", "REQUIRED", "KIND", "HELP"}
			rows := make([][]string, len(tool.Params))
			for i, p := range tool.Params {
				rows[i] = []string{p.Name, p.Flag, p.Type, strconv.FormatBool(p.Required), paramKind(p), p.Help}
			}
			out.Table(headers, rows)
			return nil
		},
	}
}

func paramKind(p ParamResponse) string {
	switch {
	case p.InputFile:
		return "input"
	case p.OutputFile:
		return "output"
	default:
		return "-"
	}
}
