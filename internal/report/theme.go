package report

import (
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tildaslashalef/semdiff/internal/extractor"
)

// Gruvbox-inspired palette for tables
var (
	gruvboxFgDark      = text.Colors{text.FgHiBlack}
	gruvboxFgLight     = text.Colors{text.FgWhite}
	gruvboxBlue        = text.Colors{text.FgBlue}
	gruvboxBlueBright  = text.Colors{text.FgHiBlue}
	gruvboxAquaBright  = text.Colors{text.FgHiCyan}
	gruvboxGreenBright = text.Colors{text.FgHiGreen}
	gruvboxRedBright   = text.Colors{text.FgHiRed}
)

// Theme - table colors shared by console views
var Theme = struct {
	Title       text.Colors
	Subtle      text.Colors
	TableHeader text.Colors
	TableBorder text.Colors
	TableRow    text.Colors
	Additions   text.Colors
	Deletions   text.Colors
}{
	Title:       append(gruvboxAquaBright, text.Bold),
	Subtle:      gruvboxFgDark,
	TableHeader: append(gruvboxBlueBright, text.Bold),
	TableBorder: gruvboxBlue,
	TableRow:    gruvboxFgLight,
	Additions:   gruvboxGreenBright,
	Deletions:   gruvboxRedBright,
}

var riskColors = map[extractor.RiskLevel]*color.Color{
	extractor.RiskLow:      color.New(color.FgGreen),
	extractor.RiskMedium:   color.New(color.FgYellow),
	extractor.RiskHigh:     color.New(color.FgRed),
	extractor.RiskCritical: color.New(color.FgRed, color.Bold),
}

var riskIcons = map[extractor.RiskLevel]string{
	extractor.RiskLow:      "✓",
	extractor.RiskMedium:   "⚠",
	extractor.RiskHigh:     "⚡",
	extractor.RiskCritical: "🔥",
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
	heading = color.New(color.FgHiCyan, color.Bold).SprintFunc()
	alert   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	notice  = color.New(color.FgHiYellow, color.Bold).SprintFunc()
)

func riskIcon(level extractor.RiskLevel) string {
	if icon, ok := riskIcons[level]; ok {
		return icon
	}
	return "•"
}

// colorRisk renders s in the color of level
func colorRisk(level extractor.RiskLevel, s string) string {
	if c, ok := riskColors[level]; ok {
		return c.Sprint(s)
	}
	return s
}

// newTable creates a table writer with the shared styling
func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if title != "" {
		t.SetTitle(title)
	}

	style := table.StyleLight
	if !noColor() {
		style.Color.Header = Theme.TableHeader
		style.Color.Border = Theme.TableBorder
		style.Color.Row = Theme.TableRow
		style.Title.Colors = Theme.Title
	}
	style.Options.SeparateRows = false
	style.Box.PaddingLeft = " "
	style.Box.PaddingRight = " "
	t.SetStyle(style)
	return t
}

func noColor() bool {
	return color.NoColor
}
