// Amplicore CLI — инструмент командной строки для проектов,
// pipeline и jobs через HTTP API.
//
// Использование:
//
//	amplicore [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	project   Управление проектами
//	pipeline  Состояние и запуск шагов pipeline
//	job       Управление jobs
//	tool      Каталог инструментов
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Amplicore/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "amplicore",
		Short:         "Amplicore CLI, FROGS amplicon pipeline jobs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("AMPLICORE_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewProjectCmd(clientFn, outputFn),
		cli.NewPipelineCmd(clientFn, outputFn),
		cli.NewJobCmd(clientFn, outputFn),
		cli.NewToolCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		outputFn().Error(err.Error())
		os.Exit(1)
	}
}
