package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tildaslashalef/semdiff/internal/extractor"
	"github.com/tildaslashalef/semdiff/internal/git"
	"github.com/tildaslashalef/semdiff/internal/review"
)

const (
	maxPathWidth   = 50
	maxTableFiles  = 10
	briefQuestions = 3
)

var numbers = message.NewPrinter(language.English)

// Markdown renders a report as a markdown document. Brief keeps the intent,
// the overall risk and the top questions.
func Markdown(r *review.Report, brief bool) string {
	var b strings.Builder
	a := r.Analysis

	fmt.Fprintf(&b, "# Semantic Diff: %s\n\n", r.Commit.ShortHash)
	fmt.Fprintf(&b, "**Commit:** `%s`\n", r.Commit.Hash)
	fmt.Fprintf(&b, "**Author:** %s\n", r.Commit.AuthorIdentity())
	fmt.Fprintf(&b, "**Date:** %s\n\n", r.Commit.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(r.Commit.Message, "\n", "\n> "))

	if a.Degraded {
		fmt.Fprintf(&b, "> **Note:** degraded analysis, defaulted %s\n\n", strings.Join(a.DefaultedFields, ", "))
	}

	if !brief {
		b.WriteString("## 📁 Files Changed\n\n")
		b.WriteString("| File | Change | + | - | Lang |\n")
		b.WriteString("|------|--------|---|---|------|\n")
		for _, f := range r.Files {
			fmt.Fprintf(&b, "| `%s` | %s | %d | %d | %s |\n", shortenPath(f.DisplayPath()), f.Status, f.Additions, f.Deletions, languageLabel(f))
		}
		b.WriteString("\n")
	}

	b.WriteString("## 🎯 Intent\n\n")
	fmt.Fprintf(&b, "**%s**\n\n", a.Intent.Summary)
	if !brief && a.Intent.Reasoning != "" {
		fmt.Fprintf(&b, "%s\n\n", a.Intent.Reasoning)
	}
	fmt.Fprintf(&b, "*Confidence: %d%%*\n\n", confidencePercent(a.Intent.Confidence))

	if !brief {
		writeImpactMarkdown(&b, a.ImpactMap)
	}

	risk := a.RiskAssessment
	b.WriteString("## ⚠️ Risk Assessment\n\n")
	fmt.Fprintf(&b, "**Overall Risk:** %s %s\n\n", riskIcon(risk.OverallRisk), strings.ToUpper(string(risk.OverallRisk)))
	if risk.BreakingChanges {
		b.WriteString("🚨 **BREAKING CHANGES DETECTED**\n\n")
	}
	if risk.RequiresMigration {
		b.WriteString("📦 **Migration required**\n\n")
	}
	if !brief && len(risk.Risks) > 0 {
		b.WriteString("### Identified Risks\n\n")
		for _, item := range risk.Risks {
			fmt.Fprintf(&b, "#### %s [%s] %s\n", riskIcon(item.Severity), item.Severity, item.Description)
			fmt.Fprintf(&b, "- 💡 **Mitigation:** %s\n", item.Mitigation)
			if len(item.EdgeCases) > 0 {
				fmt.Fprintf(&b, "- ⚡ **Edge cases:** %s\n", strings.Join(item.EdgeCases, ", "))
			}
			b.WriteString("\n")
		}
	}

	questions := a.ReviewQuestions
	if brief {
		questions = topQuestions(questions, briefQuestions)
	}
	if len(questions) > 0 {
		b.WriteString("## ❓ Review Questions\n\n")
		for i, q := range questions {
			fmt.Fprintf(&b, "### %d. %s\n", i+1, q.Question)
			fmt.Fprintf(&b, "%s %s\n\n", riskIcon(q.Priority), q.Context)
		}
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "*Analysis by %s | %s tokens | %s*\n", r.Model, numbers.Sprintf("%d", r.Usage.Total()), r.AnalyzedAt.Format(time.RFC3339))
	return b.String()
}

func writeImpactMarkdown(b *strings.Builder, m extractor.ImpactMap) {
	b.WriteString("## 🗺️ Impact Map\n\n")
	writeImpacts := func(title string, impacts []extractor.Impact) {
		if len(impacts) == 0 {
			return
		}
		fmt.Fprintf(b, "### %s\n", title)
		for _, imp := range impacts {
			fmt.Fprintf(b, "- %s **%s**: %s\n", riskIcon(imp.Severity), imp.Area, imp.Description)
		}
		b.WriteString("\n")
	}
	writeImpacts("Direct Impacts", m.DirectImpacts)
	writeImpacts("Indirect Impacts", m.IndirectImpacts)
	if len(m.AffectedComponents) > 0 {
		fmt.Fprintf(b, "**Affected Components:** %s\n\n", strings.Join(m.AffectedComponents, ", "))
	}
}

// RenderMarkdown renders markdown for a terminal of the given width
func RenderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	return r.Render(md)
}

// topQuestions returns the n highest priority questions, keeping the
// original order among equal priorities
func topQuestions(questions []extractor.ReviewQuestion, n int) []extractor.ReviewQuestion {
	sorted := append([]extractor.ReviewQuestion(nil), questions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority.Rank() > sorted[j].Priority.Rank()
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func confidencePercent(c float64) int {
	return int(c*100 + 0.5)
}

func shortenPath(p string) string {
	runes := []rune(p)
	if len(runes) <= maxPathWidth {
		return p
	}
	return string(runes[:maxPathWidth]) + "..."
}

func languageLabel(f git.FileChange) string {
	if f.Language == "" || f.Language == "unknown" {
		return "-"
	}
	return f.Language
}
