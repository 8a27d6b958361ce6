package review

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/tildaslashalef/semdiff/internal/git"
	"github.com/tildaslashalef/semdiff/internal/llm"
)

const (
	// DefaultPromptDiffBudget is the total diff characters rendered into a prompt
	DefaultPromptDiffBudget = 15000

	// DefaultMaxListed caps the root files and directories listed in a prompt
	DefaultMaxListed = 10
)

const systemInstruction = `You are a senior code reviewer analyzing a git commit. Your task is to provide semantic analysis that goes beyond what a simple diff shows.

Your answer MUST be a single valid JSON object following the schema in the request. Do not add fields. Use only the levels low, medium, high and critical.`

const analysisTemplate = `## Commit Information
- **Hash:** {{.Commit.Hash}}
- **Message:** {{.Commit.Message}}
- **Author:** {{.Commit.AuthorIdentity}}
- **Date:** {{.Date}}
{{- if .DiffBase}}
- **Compared against:** {{.DiffBase}}{{if .Commit.IsMerge}} (first parent of a merge){{end}}
{{- end}}

## Project Context
- **Languages:** {{join .Languages ", "}}
- **Package Manager:** {{.Project.PackageManager}}
- **Has Tests:** {{yesno .Project.HasTests}}
- **Has CI:** {{yesno .Project.HasCI}}
- **Root Files:** {{join .RootFiles ", "}}
- **Directories:** {{join .Directories ", "}}

## Files Changed
{{range .Files -}}
- {{.DisplayPath}} ({{.Status}}) +{{.Additions}}/-{{.Deletions}}{{if ne .Language "unknown"}} [{{.Language}}]{{end}}
{{end}}
## Detailed Diffs
{{.Diffs}}

---

Analyze this commit and provide a structured response in the following JSON format:

` + "```json" + `
{
    "intent": {
        "summary": "One sentence describing WHAT the developer was trying to accomplish (not what changed, but WHY)",
        "reasoning": "2-3 sentences explaining your reasoning",
        "confidence": 0.0-1.0
    },
    "impact_map": {
        "direct_impacts": [
            {"area": "affected area", "description": "how it's affected", "severity": "low|medium|high|critical"}
        ],
        "indirect_impacts": [
            {"area": "indirectly affected area", "description": "potential ripple effects", "severity": "low|medium|high|critical"}
        ],
        "affected_components": ["list", "of", "components"]
    },
    "risk_assessment": {
        "overall_risk": "low|medium|high|critical",
        "risks": [
            {
                "description": "specific risk",
                "severity": "low|medium|high|critical",
                "mitigation": "how to mitigate",
                "edge_cases": ["edge case 1", "edge case 2"]
            }
        ],
        "breaking_changes": true/false,
        "requires_migration": true/false
    },
    "review_questions": [
        {
            "question": "Question for the author",
            "context": "Why this question matters",
            "priority": "low|medium|high|critical"
        }
    ]
}
` + "```" + `

Focus on:
1. **Intent**: What problem is being solved? What's the motivation?
2. **Impact**: What else in the system might be affected? Consider imports, API consumers, tests.
3. **Risk**: What could break? What edge cases exist? Is this backwards compatible?
4. **Questions**: What would you ask the author in a code review?

Be specific and actionable. Avoid generic observations.`

var promptTemplate = template.Must(template.New("analysis").Funcs(template.FuncMap{
	"join": strings.Join,
	"yesno": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
}).Parse(analysisTemplate))

// PromptOptions shapes the rendered prompt text
type PromptOptions struct {
	DiffBudget int // total diff characters across files
	MaxListed  int // root files and directories listed
}

// DefaultPromptOptions returns default prompt options
func DefaultPromptOptions() PromptOptions {
	return PromptOptions{
		DiffBudget: DefaultPromptDiffBudget,
		MaxListed:  DefaultMaxListed,
	}
}

// BuildPrompt renders the analysis prompt for req. Budgets only shape the
// prompt text; req itself is left untouched.
func BuildPrompt(req AnalysisRequest, opts PromptOptions) (llm.Prompt, error) {
	if opts.DiffBudget <= 0 {
		opts.DiffBudget = DefaultPromptDiffBudget
	}
	if opts.MaxListed <= 0 {
		opts.MaxListed = DefaultMaxListed
	}

	languages := req.Project.Languages
	if len(languages) == 0 {
		languages = []string{"unknown"}
	}

	data := struct {
		AnalysisRequest
		Date        string
		Languages   []string
		RootFiles   []string
		Directories []string
		Diffs       string
	}{
		AnalysisRequest: req,
		Date:            req.Commit.Timestamp.Format(time.RFC3339),
		Languages:       languages,
		RootFiles:       limit(req.Project.Files, opts.MaxListed),
		Directories:     limit(req.Project.Directories, opts.MaxListed),
		Diffs:           formatDiffs(req.Files, opts.DiffBudget),
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return llm.Prompt{}, fmt.Errorf("rendering prompt: %w", err)
	}

	return llm.Prompt{System: systemInstruction, User: buf.String()}, nil
}

// formatDiffs renders one fenced block per file until budget characters are
// used, cutting the last block and noting how many files were left out
func formatDiffs(files []git.FileChange, budget int) string {
	blocks := make([]string, 0, len(files))
	used := 0

	for i, f := range files {
		if used >= budget {
			blocks = append(blocks, fmt.Sprintf("\n... (truncated - %d more files)", len(files)-i))
			break
		}

		fence := f.Language
		if fence == "" || fence == "unknown" {
			fence = "diff"
		}
		header := fmt.Sprintf("\n### %s (%s)\n```%s\n", f.DisplayPath(), f.Status, fence)
		footer := "\n```\n"

		content := diffText(f)
		available := budget - used - runeLen(header) - runeLen(footer)
		if available < 0 {
			available = 0
		}
		if runeLen(content) > available {
			content = truncateRunes(content, available) + "\n... (truncated)"
		}

		block := header + content + footer
		blocks = append(blocks, block)
		used += runeLen(block)
	}

	return strings.Join(blocks, "\n")
}

func diffText(f git.FileChange) string {
	switch f.DiffState {
	case git.DiffBinary:
		return "(binary file)"
	case git.DiffUnavailable:
		return "(diff unavailable: " + f.DiffError + ")"
	default:
		return f.Diff
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func limit(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
