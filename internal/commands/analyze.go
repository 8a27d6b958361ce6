package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/semdiff/internal/app"
	"github.com/tildaslashalef/semdiff/internal/review"
)

// AnalyzeCommand returns the CLI command for analyzing one commit
func AnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Analyze the intent, impact and risk of a commit",
		ArgsUsage: "[ref]",
		Description: "Extracts the commit's metadata and diffs, asks the configured model for a " +
			"semantic analysis and prints it. The ref can be anything git understands " +
			"(hash, short hash, branch, tag, HEAD~2) and defaults to HEAD.",
		Flags:  AnalysisFlags(),
		Action: AnalyzeAction,
	}
}

// AnalyzeAction analyzes the commit named by the first argument
func AnalyzeAction(c *cli.Context) error {
	opts, err := newOutputOptions(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	analyzer, err := application.Analyzer(app.AnalyzerOptions{
		RepoPath: c.String("repo"),
		Provider: c.String("provider"),
		Model:    c.String("model"),
	})
	if err != nil {
		return exitError(err)
	}

	ref := c.Args().First()
	if ref == "" {
		ref = "HEAD"
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.JSON {
		printInfo(c.App.ErrWriter, fmt.Sprintf("Analyzing %s", ref))
	}

	rep, err := analyzer.AnalyzeCommit(ctx, ref)
	if errors.Is(err, review.ErrNoChanges) {
		printWarning(c.App.ErrWriter, fmt.Sprintf("%s has no file changes, nothing to analyze", ref))
		return nil
	}
	if err != nil {
		return exitError(err)
	}

	return writeReport(c.App.Writer, rep, opts)
}
