package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/semdiff/internal/app"
	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/report"
	"github.com/tildaslashalef/semdiff/internal/review"
)

// RangeCommand returns the CLI command for analyzing a range of commits
func RangeCommand() *cli.Command {
	flags := append(AnalysisFlags(), &cli.IntFlag{
		Name:    "concurrency",
		Aliases: []string{"c"},
		Usage:   "Commits analyzed in parallel (default: SEMDIFF_RANGE_CONCURRENCY)",
	})

	return &cli.Command{
		Name:      "range",
		Usage:     "Analyze every commit reachable from <to> but not from <from>",
		ArgsUsage: "<from>..<to> | <from> <to>",
		Description: "Analyzes each commit of the range independently, oldest first. A failed " +
			"commit is reported in the summary and does not stop the others.",
		Flags:  flags,
		Action: rangeAction,
	}
}

func rangeAction(c *cli.Context) error {
	opts, err := newOutputOptions(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if opts.Markdown {
		return cli.Exit("--markdown is not supported for ranges", 1)
	}

	from, to, err := parseRange(c.Args().Slice())
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

	concurrency := c.Int("concurrency")
	if concurrency <= 0 {
		concurrency = application.Config.Analysis.Concurrency
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.JSON {
		printInfo(c.App.ErrWriter, fmt.Sprintf("Analyzing %s..%s", from, to))
	}

	results, err := analyzer.AnalyzeRange(ctx, from, to, concurrency)
	if err != nil && len(results) == 0 {
		return exitError(err)
	}

	if opts.JSON {
		if werr := report.WriteRangeJSON(c.App.Writer, results); werr != nil {
			return werr
		}
	} else {
		report.NewConsole(c.App.Writer, report.Options{
			Brief:   opts.Brief,
			Verbose: opts.Verbose,
			Width:   terminalWidth(c.App.Writer),
		}).RenderRange(results)
	}

	if err != nil {
		return exitError(err)
	}
	return exitError(firstFailure(results))
}

// parseRange accepts "from..to" or two separate refs
func parseRange(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		if strings.Contains(args[0], "...") {
			return "", "", errors.Newf("symmetric ranges are not supported: %s", args[0])
		}
		from, to, found := strings.Cut(args[0], "..")
		if !found || from == "" || to == "" {
			return "", "", errors.Newf("expected <from>..<to>, got %q", args[0])
		}
		return from, to, nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", errors.New("expected a range: <from>..<to> or <from> <to>")
	}
}

// firstFailure returns the error of the first failed commit, so a partially
// failed range exits with that failure's code
func firstFailure(results []review.RangeResult) error {
	failed := 0
	var first error
	for _, res := range results {
		if res.Failed() {
			failed++
			if first == nil {
				first = res.Err
			}
		}
	}
	if first == nil {
		return nil
	}
	kind := failure.KindOf(first)
	if failure.Is(first, failure.KindUnknown) {
		kind = failure.KindFatal
	}
	return failure.Wrap(kind, "range", errors.Wrapf(first, "%d of %d commits failed, first", failed, len(results)))
}
