package review

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tildaslashalef/semdiff/internal/config"
	"github.com/tildaslashalef/semdiff/internal/extractor"
	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/git"
	"github.com/tildaslashalef/semdiff/internal/llm"
	"github.com/tildaslashalef/semdiff/internal/loggy"
)

// AnalysisClient sends a prompt and returns the raw answer
type AnalysisClient interface {
	Analyze(ctx context.Context, prompt llm.Prompt) (*llm.Response, error)
}

// Analyzer runs the extract, build, call, validate pipeline against one repository
type Analyzer struct {
	repoPath  string
	client    AnalysisClient
	validator *extractor.Validator
	prompt    PromptOptions
	timeout   time.Duration
	logger    *loggy.Logger
	now       func() time.Time
}

// NewAnalyzer creates a new Analyzer
func NewAnalyzer(repoPath string, client AnalysisClient, cfg config.AnalysisConfig, logger *loggy.Logger) *Analyzer {
	if logger == nil {
		logger = loggy.GetGlobalLogger()
	}

	opts := DefaultPromptOptions()
	if cfg.PromptDiffBudget > 0 {
		opts.DiffBudget = cfg.PromptDiffBudget
	}

	return &Analyzer{
		repoPath:  repoPath,
		client:    client,
		validator: extractor.NewValidator(logger),
		prompt:    opts,
		timeout:   cfg.Timeout,
		logger:    logger,
		now:       time.Now,
	}
}

// AnalyzeCommit analyzes the commit ref resolves to
func (a *Analyzer) AnalyzeCommit(ctx context.Context, ref string) (*Report, error) {
	runID := loggy.NewRunID()
	ctx = loggy.WithRun(ctx, a.logger, runID)
	logger := loggy.FromContext(ctx)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	logger.Info("Analyzing commit", "ref", ref, "repo", a.repoPath)

	// each run gets its own repository handle
	gitService := git.NewService(logger)
	if err := gitService.InitRepo(a.repoPath); err != nil {
		return nil, err
	}

	commit, err := gitService.ResolveCommit(ctx, ref)
	if err != nil {
		return nil, err
	}

	files, err := gitService.FileChanges(ctx, commit)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrNoChanges, "commit %s", commit.ShortHash)
	}
	if diffErr := git.DiffErrors(files); diffErr != nil {
		logger.Warn("Some diffs could not be generated", "commit", commit.ShortHash, "error", diffErr)
	}

	project, err := gitService.ProjectContext(ctx, commit)
	if err != nil {
		return nil, err
	}

	req, err := NewAnalysisRequest(commit, files, project)
	if err != nil {
		return nil, err
	}

	prompt, err := BuildPrompt(req, a.prompt)
	if err != nil {
		return nil, err
	}
	logger.Debug("Built analysis prompt", "commit", commit.ShortHash, "files", len(files), "prompt_chars", len(prompt.User))

	resp, err := a.client.Analyze(ctx, prompt)
	if err != nil {
		logger.Error("Analysis failed", "commit", commit.ShortHash, "kind", failure.KindOf(err), "error", err)
		return nil, err
	}

	analysis, err := a.validator.Validate(resp.Text)
	if err != nil {
		logger.Error("Invalid analysis response", "commit", commit.ShortHash, "error", err)
		return nil, err
	}

	logger.Info("Commit analyzed",
		"commit", commit.ShortHash,
		"overall_risk", analysis.RiskAssessment.OverallRisk,
		"degraded", analysis.Degraded,
		"attempts", resp.Attempts,
		"tokens", resp.Usage.Total())

	return &Report{
		RunID:      runID,
		Commit:     req.Commit,
		Files:      req.Files,
		Project:    req.Project,
		DiffBase:   req.DiffBase,
		Analysis:   *analysis,
		Provider:   resp.Provider,
		Model:      resp.Model,
		Usage:      resp.Usage,
		Attempts:   resp.Attempts,
		TotalWait:  resp.TotalWait,
		AnalyzedAt: a.now(),
	}, nil
}

// AnalyzeRange analyzes every commit reachable from to but not from from,
// oldest first, at most concurrency at a time. Results keep that order.
// A failed commit is reported in its entry and does not stop the others.
func (a *Analyzer) AnalyzeRange(ctx context.Context, from, to string, concurrency int) ([]RangeResult, error) {
	gitService := git.NewService(a.logger)
	if err := gitService.InitRepo(a.repoPath); err != nil {
		return nil, err
	}

	commits, err := gitService.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	if concurrency <= 0 {
		concurrency = 1
	}
	a.logger.Info("Analyzing commit range", "from", from, "to", to, "commits", len(commits), "concurrency", concurrency)

	results := make([]RangeResult, len(commits))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, commit := range commits {
		g.Go(func() error {
			report, err := a.AnalyzeCommit(ctx, commit.Hash)
			switch {
			case errors.Is(err, ErrNoChanges):
				a.logger.Info("Skipping commit without file changes", "commit", commit.ShortHash)
				results[i] = RangeResult{Commit: *commit, Skipped: true}
			case err != nil:
				a.logger.Warn("Commit in range failed", "commit", commit.ShortHash, "error", err)
				results[i] = RangeResult{Commit: *commit, Err: err}
			default:
				results[i] = RangeResult{Commit: *commit, Report: report}
			}
			// per-commit failures stay in results; only cancellation reaches Wait
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return results, failure.FromContext("review.analyze_range", err)
	}
	return results, nil
}
