package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/loggy"
	"github.com/tildaslashalef/semdiff/internal/report"
	"github.com/tildaslashalef/semdiff/internal/review"
)

var (
	headingColor = color.New(color.FgHiCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgBlue)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

func printHeading(w io.Writer, title string) {
	fmt.Fprintln(w, headingColor.Sprint(title))
}

func printSuccess(w io.Writer, message string) {
	fmt.Fprintln(w, successColor.Sprint("✓ ")+message)
}

func printInfo(w io.Writer, message string) {
	fmt.Fprintln(w, infoColor.Sprint("ℹ ")+message)
}

func printWarning(w io.Writer, message string) {
	fmt.Fprintln(w, warningColor.Sprint("⚠ ")+message)
}

// outputOptions is how a report is written
type outputOptions struct {
	JSON     bool
	Markdown bool
	Brief    bool
	Verbose  bool
}

func newOutputOptions(c *cli.Context) (outputOptions, error) {
	opts := outputOptions{
		JSON:     c.Bool("json"),
		Markdown: c.Bool("markdown"),
		Brief:    c.Bool("brief"),
		Verbose:  c.Bool("verbose"),
	}
	return opts, opts.validate()
}

func (o outputOptions) validate() error {
	if o.Brief && o.Verbose {
		return errors.New("--brief and --verbose cannot be used together")
	}
	if o.JSON && o.Markdown {
		return errors.New("--json and --markdown cannot be used together")
	}
	return nil
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or report.DefaultWidth when unknown
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return report.DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return report.DefaultWidth
	}
	return width
}

// writeReport writes one report to w in the requested format
func writeReport(w io.Writer, r *review.Report, opts outputOptions) error {
	switch {
	case opts.JSON:
		return report.WriteJSON(w, r)

	case opts.Markdown:
		md := report.Markdown(r, opts.Brief)
		if isTerminal(w) {
			rendered, err := report.RenderMarkdown(md, terminalWidth(w))
			if err != nil {
				loggy.Warn("Failed to render markdown, printing raw", "error", err)
			} else {
				md = rendered
			}
		}
		_, err := io.WriteString(w, md)
		return err

	default:
		report.NewConsole(w, report.Options{
			Brief:   opts.Brief,
			Verbose: opts.Verbose,
			Width:   terminalWidth(w),
		}).Render(r)
		return nil
	}
}

// exitError converts a pipeline failure into a cli exit error carrying the
// exit code of its kind
func exitError(err error) error {
	if err == nil {
		return nil
	}
	loggy.Error("Command failed", "error", err, "kind", failure.KindOf(err))

	message := errorColor.Sprint("✗ ") + err.Error()
	if failure.Retryable(err) {
		message += "\n  the failure may be temporary, try again later"
	}
	return cli.Exit(message, failure.ExitCode(err))
}
