package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/tildaslashalef/semdiff/internal/extractor"
	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/review"
)

// DefaultWidth is used when the terminal width is unknown
const DefaultWidth = 100

// Options controls console output
type Options struct {
	Brief   bool // intent, overall risk and top questions only
	Verbose bool // adds run metadata
	Width   int
}

// Console writes human-readable reports
type Console struct {
	out  io.Writer
	opts Options
}

// NewConsole creates a console writer
func NewConsole(out io.Writer, opts Options) *Console {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	return &Console{out: out, opts: opts}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// wrap word-wraps s to the console width minus the indentation
func (c *Console) wrap(s string, indentBy uint) string {
	width := c.opts.Width - int(indentBy)
	if width < 20 {
		width = 20
	}
	return indent.String(wordwrap.String(s, width), indentBy)
}

// Render writes one report
func (c *Console) Render(r *review.Report) {
	a := r.Analysis

	c.renderHeader(r)

	if a.Degraded {
		c.printf("%s\n\n", c.wrap(notice("⚠ Degraded analysis")+" defaulted "+strings.Join(a.DefaultedFields, ", "), 0))
	}

	if !c.opts.Brief {
		c.renderFiles(r)
	}

	c.printf("%s\n", heading("🎯 Intent"))
	c.printf("%s\n", c.wrap(bold(a.Intent.Summary), 2))
	if !c.opts.Brief && a.Intent.Reasoning != "" {
		c.printf("\n%s\n", c.wrap(a.Intent.Reasoning, 2))
	}
	c.printf("\n  %s\n\n", dim(fmt.Sprintf("Confidence: [%s] %d%%", confidenceBar(a.Intent.Confidence), confidencePercent(a.Intent.Confidence))))

	if !c.opts.Brief {
		c.renderImpact(a.ImpactMap)
	}

	c.renderRisk(a.RiskAssessment)

	questions := a.ReviewQuestions
	if c.opts.Brief {
		questions = topQuestions(questions, briefQuestions)
	}
	if len(questions) > 0 {
		c.printf("%s\n", heading("❓ Review Questions"))
		for i, q := range questions {
			c.printf("%s\n", c.wrap(bold(fmt.Sprintf("%d. %s", i+1, q.Question)), 2))
			if q.Context != "" {
				c.printf("%s\n", c.wrap(colorRisk(q.Priority, riskIcon(q.Priority))+" "+dim(q.Context), 5))
			}
			c.printf("\n")
		}
	}

	c.renderFooter(r)
}

func (c *Console) renderHeader(r *review.Report) {
	body := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render("📋 Semantic Diff Analysis"),
		"",
		wordwrap.String(r.Commit.Message, c.opts.Width-6),
		"",
		lipgloss.NewStyle().Foreground(lipgloss.Color("#928374")).Render(
			fmt.Sprintf("%s by %s\n%s", r.Commit.ShortHash, r.Commit.Author, r.Commit.Timestamp.Format(time.RFC1123))),
	)

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("#83a598")).
		Padding(0, 1).
		Render(body)

	c.printf("\n%s\n\n", box)
}

func (c *Console) renderFiles(r *review.Report) {
	t := newTable(c.out, "📁 Files Changed")
	t.AppendHeader(table.Row{"File", "Change", "+", "-", "Lang"})

	for i, f := range r.Files {
		if i == maxTableFiles {
			t.AppendRow(table.Row{fmt.Sprintf("... and %d more", len(r.Files)-maxTableFiles), "", "", "", ""})
			break
		}
		t.AppendRow(table.Row{shortenPath(f.DisplayPath()), f.Status, f.Additions, f.Deletions, languageLabel(f)})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d files", len(r.Files)), "", r.TotalAdditions(), r.TotalDeletions(), ""})

	configs := []table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	}
	if !noColor() {
		configs[0].Colors = Theme.Additions
		configs[1].Colors = Theme.Deletions
	}
	t.SetColumnConfigs(configs)
	t.Render()
	c.printf("\n")
}

func (c *Console) renderImpact(m extractor.ImpactMap) {
	if len(m.DirectImpacts) == 0 && len(m.IndirectImpacts) == 0 && len(m.AffectedComponents) == 0 {
		return
	}
	c.printf("%s\n", heading("🗺️  Impact Map"))

	renderImpacts := func(title string, impacts []extractor.Impact) {
		if len(impacts) == 0 {
			return
		}
		c.printf("  %s\n", bold(title+":"))
		for _, imp := range impacts {
			line := colorRisk(imp.Severity, riskIcon(imp.Severity)) + " " + bold(imp.Area+":") + " " + imp.Description
			c.printf("%s\n", c.wrap(line, 4))
		}
		c.printf("\n")
	}
	renderImpacts("Direct Impacts", m.DirectImpacts)
	renderImpacts("Indirect Impacts", m.IndirectImpacts)

	if len(m.AffectedComponents) > 0 {
		c.printf("%s\n\n", c.wrap(bold("Affected Components:")+" "+strings.Join(m.AffectedComponents, ", "), 2))
	}
}

func (c *Console) renderRisk(risk extractor.RiskAssessment) {
	c.printf("%s\n", heading("⚠️  Risk Assessment"))
	overall := fmt.Sprintf("Overall Risk: %s %s", riskIcon(risk.OverallRisk), strings.ToUpper(string(risk.OverallRisk)))
	c.printf("  %s\n", bold(colorRisk(risk.OverallRisk, overall)))

	if risk.BreakingChanges {
		c.printf("  %s\n", alert("⚠️  BREAKING CHANGES DETECTED"))
	}
	if risk.RequiresMigration {
		c.printf("  %s\n", notice("📦 Migration required"))
	}
	c.printf("\n")

	if c.opts.Brief || len(risk.Risks) == 0 {
		return
	}

	c.printf("  %s\n", bold("Identified Risks:"))
	for _, item := range risk.Risks {
		line := colorRisk(item.Severity, fmt.Sprintf("%s [%s]", riskIcon(item.Severity), item.Severity)) + " " + item.Description
		c.printf("\n%s\n", c.wrap(line, 4))
		c.printf("%s\n", c.wrap(dim("💡 Mitigation: "+item.Mitigation), 7))
		if len(item.EdgeCases) > 0 {
			c.printf("%s\n", c.wrap(dim("⚡ Edge cases: "+strings.Join(item.EdgeCases, ", ")), 7))
		}
	}
	c.printf("\n")
}

func (c *Console) renderFooter(r *review.Report) {
	c.printf("%s\n", dim(fmt.Sprintf("Analysis by %s | %s tokens | %s",
		r.Model, numbers.Sprintf("%d", r.Usage.Total()), r.AnalyzedAt.Format(time.RFC3339))))

	if c.opts.Verbose {
		c.printf("%s\n", dim(fmt.Sprintf("Run %s | provider %s | %d attempt(s) | waited %s",
			r.RunID, r.Provider, r.Attempts, r.TotalWait.Round(time.Millisecond))))
		c.printf("%s\n", dim(fmt.Sprintf("Tokens: %d in / %d out", r.Usage.InputTokens, r.Usage.OutputTokens)))
		if r.DiffBase != "" {
			note := ""
			if r.Commit.IsMerge() {
				note = " (first parent of merge)"
			}
			c.printf("%s\n", dim("Compared against "+r.DiffBase+note))
		}
	}
	c.printf("\n")
}

// RenderRange writes a summary table for a commit range, followed by the
// full report of every analyzed commit when verbose
func (c *Console) RenderRange(results []review.RangeResult) {
	if len(results) == 0 {
		c.printf("No commits in range.\n")
		return
	}

	t := newTable(c.out, "Commit Range")
	t.AppendHeader(table.Row{"Commit", "Message", "Risk", "Confidence", "Questions", "Status"})

	failed := 0
	for _, res := range results {
		message := firstLine(res.Commit.Message)
		if res.Failed() {
			failed++
			t.AppendRow(table.Row{res.Commit.ShortHash, message, "-", "-", "-", alert(string(failure.KindOf(res.Err)))})
			continue
		}
		if res.Skipped {
			t.AppendRow(table.Row{res.Commit.ShortHash, message, "-", "-", "-", dim("skipped (no changes)")})
			continue
		}
		a := res.Report.Analysis
		status := "ok"
		if a.Degraded {
			status = "degraded"
		}
		t.AppendRow(table.Row{
			res.Commit.ShortHash,
			message,
			colorRisk(a.RiskAssessment.OverallRisk, strings.ToUpper(string(a.RiskAssessment.OverallRisk))),
			fmt.Sprintf("%d%%", confidencePercent(a.Intent.Confidence)),
			len(a.ReviewQuestions),
			status,
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d commits", len(results)), "", "", "", "", fmt.Sprintf("%d failed", failed)})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 50}})
	t.Render()
	c.printf("\n")

	for _, res := range results {
		if res.Failed() {
			c.printf("%s %s: %v\n", alert("✗"), res.Commit.ShortHash, res.Err)
		}
	}

	if c.opts.Verbose {
		for _, res := range results {
			if res.Report != nil {
				c.Render(res.Report)
			}
		}
	}
}

func confidenceBar(confidence float64) string {
	filled := int(confidence * 10)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
