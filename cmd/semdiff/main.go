package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/semdiff/internal/app"
	"github.com/tildaslashalef/semdiff/internal/commands"
)

// Version information - populated at build time
var (
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "unknown"
	Author     = "unknown"
	Email      = "unknown"
)

func main() {
	cliApp := &cli.App{
		Name:  "semdiff",
		Usage: "Semantic analysis of git commits",
		Description: "semdiff explains what a commit is for: its intent, the areas it touches, " +
			"the risks it carries and the questions a reviewer should ask.\n\n" +
			"When run without subcommands, semdiff analyzes the given ref (default HEAD).",
		ArgsUsage: "[ref]",
		Version:   fmt.Sprintf("%s (%s)", Version, CommitHash),
		Compiled: func() time.Time {
			t, err := time.Parse(time.RFC3339, BuildTime)
			if err != nil {
				return time.Now()
			}
			return t
		}(),
		Authors: []*cli.Author{
			{
				Name:  Author,
				Email: Email,
			},
		},
		Flags: commands.AnalysisFlags(),
		Before: func(c *cli.Context) error {
			// init must work before any configuration exists
			if c.Args().First() == "init" {
				return nil
			}

			application, err := app.New()
			if err != nil {
				return cli.Exit(fmt.Sprintf("failed to initialize application: %s", err), 1)
			}

			c.App.Metadata = map[string]interface{}{
				"app": application,
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if app, ok := c.App.Metadata["app"].(*app.App); ok {
				return app.Shutdown()
			}
			return nil
		},
		Commands: []*cli.Command{
			commands.AnalyzeCommand(),
			commands.RangeCommand(),
			commands.InitCommand(),
		},
		Action: commands.AnalyzeAction,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
