package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/semdiff/internal/app"
	"github.com/tildaslashalef/semdiff/internal/config"
	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/loggy"
	"github.com/tildaslashalef/semdiff/internal/report"
	"github.com/tildaslashalef/semdiff/internal/review"
)

const answer = `{
  "intent": {"summary": "Add a greeting", "reasoning": "New entry point", "confidence": 0.75},
  "impact_map": {"direct_impacts": [{"area": "cli", "description": "prints hello", "severity": "low"}], "indirect_impacts": [], "affected_components": ["cli"]},
  "risk_assessment": {"overall_risk": "low", "risks": [], "breaking_changes": false, "requires_migration": false},
  "review_questions": [{"question": "Should it be localized?", "context": "hard-coded text", "priority": "medium"}]
}`

func init() {
	color.NoColor = true
}

func runGit(t *testing.T, repoPath string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = repoPath
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s failed: %s", strings.Join(args, " "), string(out))
	return strings.TrimSpace(string(out))
}

func setupRepo(t *testing.T) string {
	t.Helper()
	repoPath := t.TempDir()
	runGit(t, repoPath, "init")
	runGit(t, repoPath, "config", "user.name", "Test User")
	runGit(t, repoPath, "config", "user.email", "test@example.com")
	runGit(t, repoPath, "config", "commit.gpgsign", "false")

	for i, name := range []string{"hello.py", "world.py"} {
		path := filepath.Join(repoPath, name)
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("print(%d)\n", i)), 0o644))
		runGit(t, repoPath, "add", name)
		runGit(t, repoPath, "commit", "-m", "Add "+name)
	}
	return repoPath
}

// ollamaServer answers every chat request with body and the given status
func ollamaServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		resp := map[string]any{
			"model":             "gemma3",
			"message":           map[string]string{"role": "assistant", "content": body},
			"done":              true,
			"prompt_eval_count": 200,
			"eval_count":        40,
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestCLI(t *testing.T, endpoint string) (*cli.App, *bytes.Buffer) {
	t.Helper()
	cfg := config.New()
	cfg.DefaultLLMProvider = "ollama"
	cfg.Ollama = config.OllamaConfig{Endpoint: endpoint, Model: "gemma3", Timeout: 5 * time.Second, BurstLimit: 1}
	cfg.Retry = config.RetryConfig{MaxRetries: 1, MaxTotalWait: time.Second, BaseDelay: time.Millisecond}
	cfg.Analysis = config.AnalysisConfig{PromptDiffBudget: 15000, Concurrency: 2}

	var out bytes.Buffer
	cliApp := &cli.App{
		Name:      "semdiff",
		Writer:    &out,
		ErrWriter: &bytes.Buffer{},
		Metadata:  map[string]interface{}{"app": &app.App{Config: cfg, Logger: loggy.NewNoopLogger()}},
		Flags:     AnalysisFlags(),
		Commands:  []*cli.Command{AnalyzeCommand(), RangeCommand()},
		Action:    AnalyzeAction,
		// keep cli.Exit from terminating the test binary
		ExitErrHandler: func(*cli.Context, error) {},
	}
	return cliApp, &out
}

func TestAnalyzeJSON(t *testing.T) {
	repoPath := setupRepo(t)
	server := ollamaServer(t, http.StatusOK, answer)
	cliApp, out := newTestCLI(t, server.URL)

	require.NoError(t, cliApp.Run([]string{"semdiff", "analyze", "--repo", repoPath, "--json", "HEAD~1"}))

	var decoded review.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "Add hello.py", decoded.Commit.Message)
	assert.Equal(t, "Add a greeting", decoded.Analysis.Intent.Summary)
	assert.Equal(t, "ollama", decoded.Provider)
	assert.Equal(t, 240, decoded.Usage.Total())
}

func TestAnalyzeDefaultAction(t *testing.T) {
	repoPath := setupRepo(t)
	server := ollamaServer(t, http.StatusOK, answer)
	cliApp, out := newTestCLI(t, server.URL)

	require.NoError(t, cliApp.Run([]string{"semdiff", "--repo", repoPath, "--brief"}))

	assert.Contains(t, out.String(), "Add world.py")
	assert.Contains(t, out.String(), "Add a greeting")
	assert.Contains(t, out.String(), "Should it be localized?")
	assert.NotContains(t, out.String(), "Files Changed")
}

func TestAnalyzeMarkdown(t *testing.T) {
	repoPath := setupRepo(t)
	server := ollamaServer(t, http.StatusOK, answer)
	cliApp, out := newTestCLI(t, server.URL)

	require.NoError(t, cliApp.Run([]string{"semdiff", "analyze", "-r", repoPath, "--markdown"}))
	assert.True(t, strings.HasPrefix(out.String(), "# Semantic Diff: "), "non-terminal output is raw markdown")
}

func TestAnalyzeFailures(t *testing.T) {
	repoPath := setupRepo(t)

	t.Run("fatal service error", func(t *testing.T) {
		server := ollamaServer(t, http.StatusNotFound, `{"error":"model not found"}`)
		cliApp, _ := newTestCLI(t, server.URL)

		err := cliApp.Run([]string{"semdiff", "analyze", "--repo", repoPath})
		require.Error(t, err)
		var exitErr cli.ExitCoder
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 4, exitErr.ExitCode())
	})

	t.Run("unknown ref", func(t *testing.T) {
		server := ollamaServer(t, http.StatusOK, answer)
		cliApp, _ := newTestCLI(t, server.URL)

		err := cliApp.Run([]string{"semdiff", "analyze", "--repo", repoPath, "no-such-branch"})
		var exitErr cli.ExitCoder
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.ExitCode())
	})

	t.Run("brief and verbose", func(t *testing.T) {
		cliApp, _ := newTestCLI(t, "http://localhost:0")

		err := cliApp.Run([]string{"semdiff", "analyze", "--brief", "--verbose"})
		var exitErr cli.ExitCoder
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 1, exitErr.ExitCode())
		assert.Contains(t, err.Error(), "cannot be used together")
	})
}

func TestAnalyzeNoChanges(t *testing.T) {
	repoPath := setupRepo(t)
	runGit(t, repoPath, "commit", "--allow-empty", "-m", "Empty")
	server := ollamaServer(t, http.StatusOK, answer)
	cliApp, out := newTestCLI(t, server.URL)

	require.NoError(t, cliApp.Run([]string{"semdiff", "analyze", "--repo", repoPath}))
	assert.Empty(t, out.String())
}

func TestRange(t *testing.T) {
	repoPath := setupRepo(t)
	server := ollamaServer(t, http.StatusOK, answer)
	cliApp, out := newTestCLI(t, server.URL)

	root := runGit(t, repoPath, "rev-list", "--max-parents=0", "HEAD")
	runGit(t, repoPath, "commit", "--allow-empty", "-m", "Empty")

	require.NoError(t, cliApp.Run([]string{"semdiff", "range", "--repo", repoPath, "--json", root + "..HEAD~1"}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.NotNil(t, decoded[0]["report"])
}

func TestRangeWithEmptyCommit(t *testing.T) {
	repoPath := setupRepo(t)
	server := ollamaServer(t, http.StatusOK, answer)
	cliApp, out := newTestCLI(t, server.URL)

	root := runGit(t, repoPath, "rev-list", "--max-parents=0", "HEAD")
	runGit(t, repoPath, "commit", "--allow-empty", "-m", "Empty")

	require.NoError(t, cliApp.Run([]string{"semdiff", "range", "--repo", repoPath, "--json", root + "..HEAD"}),
		"a commit without changes does not fail the range")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.NotNil(t, decoded[0]["report"])
	assert.Equal(t, true, decoded[1]["skipped"])
	assert.Nil(t, decoded[1]["error"])
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		from, to string
		wantErr  bool
	}{
		{name: "dotted", args: []string{"main..feature"}, from: "main", to: "feature"},
		{name: "two args", args: []string{"v1.0", "HEAD"}, from: "v1.0", to: "HEAD"},
		{name: "relative", args: []string{"HEAD~3..HEAD"}, from: "HEAD~3", to: "HEAD"},
		{name: "symmetric", args: []string{"a...b"}, wantErr: true},
		{name: "missing end", args: []string{"main.."}, wantErr: true},
		{name: "single ref", args: []string{"main"}, wantErr: true},
		{name: "none", wantErr: true},
		{name: "too many", args: []string{"a", "b", "c"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := parseRange(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestOutputOptionsValidate(t *testing.T) {
	assert.NoError(t, outputOptions{Brief: true, JSON: true}.validate())
	assert.Error(t, outputOptions{Brief: true, Verbose: true}.validate())
	assert.Error(t, outputOptions{JSON: true, Markdown: true}.validate())
}

func TestFirstFailure(t *testing.T) {
	assert.NoError(t, firstFailure([]review.RangeResult{{Report: &review.Report{}}, {Skipped: true}}))

	err := firstFailure([]review.RangeResult{
		{Report: &review.Report{}},
		{Err: failure.New(failure.KindParse, "extractor.validate", "no JSON")},
		{Err: failure.New(failure.KindFatal, "llm.analyze", "rejected")},
	})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindParse))
	assert.Contains(t, err.Error(), "2 of 3 commits failed")
	assert.Equal(t, 5, failure.ExitCode(err))
}

func TestExitError(t *testing.T) {
	assert.NoError(t, exitError(nil))

	err := exitError(failure.New(failure.KindExhausted, "llm.analyze", "gave up"))
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 6, exitErr.ExitCode())
	assert.Contains(t, err.Error(), "try again later")
}

func TestTerminalDetection(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, isTerminal(&buf))
	assert.Equal(t, report.DefaultWidth, terminalWidth(&buf))
}
