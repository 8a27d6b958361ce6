// Package language maps file paths to language names.
package language

import (
	"path"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Unknown is returned for paths whose extension is not in the table
const Unknown = "unknown"

// extensions maps a lowercase extension to a language name
var extensions = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".rs":    "rust",
	".go":    "go",
	".java":  "java",
	".rb":    "ruby",
	".php":   "php",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".sql":   "sql",
	".md":    "markdown",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".xml":   "xml",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".sh":    "bash",
	".bash":  "bash",
}

// Detect returns the language for a path by extension, case-insensitively.
// It never fails: unmatched and extensionless paths yield Unknown.
func Detect(filePath string) string {
	ext := strings.ToLower(path.Ext(filePath))
	if lang, ok := extensions[ext]; ok {
		return lang
	}
	return Unknown
}

// IsTestPath reports whether a path looks like test code or a test directory
func IsTestPath(filePath string) bool {
	if enry.IsTest(filePath) {
		return true
	}
	name := strings.ToLower(path.Base(filePath))
	return strings.Contains(name, "test") || strings.Contains(name, "spec")
}
