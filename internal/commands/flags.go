package commands

import "github.com/urfave/cli/v2"

// AnalysisFlags returns the flags shared by analyze, range and the default action
func AnalysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"r"},
			Usage:   "Path to the git repository (any directory inside it works)",
			Value:   ".",
		},
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   "Analysis provider: claude, gemini or ollama (default: SEMDIFF_LLM_DEFAULT_PROVIDER)",
		},
		&cli.StringFlag{
			Name:    "model",
			Aliases: []string{"m"},
			Usage:   "Model to use instead of the configured one",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the report as JSON",
		},
		&cli.BoolFlag{
			Name:  "markdown",
			Usage: "Print the report as markdown",
		},
		&cli.BoolFlag{
			Name:    "brief",
			Aliases: []string{"b"},
			Usage:   "Show only the intent, overall risk and top questions",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Show run metadata: run ID, attempts, wait time and token counts",
		},
	}
}
