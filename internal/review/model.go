// Package review builds analysis requests from commits and runs the
// analysis pipeline.
package review

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tildaslashalef/semdiff/internal/extractor"
	"github.com/tildaslashalef/semdiff/internal/git"
	"github.com/tildaslashalef/semdiff/internal/llm"
)

var (
	// ErrMalformedRequest is returned when a request cannot be built from its inputs
	ErrMalformedRequest = errors.New("malformed analysis request")

	// ErrNoChanges is returned for a commit without file changes
	ErrNoChanges = errors.New("commit has no file changes")
)

const hashLength = 40

// AnalysisRequest is everything sent for the analysis of one commit.
// It is fully determined by the commit and never modified after creation.
type AnalysisRequest struct {
	Commit   git.CommitInfo     `json:"commit"`
	Files    []git.FileChange   `json:"files"`
	Project  git.ProjectContext `json:"project"`
	DiffBase string             `json:"diff_base,omitempty"`
}

// NewAnalysisRequest assembles a request. Inputs are copied so later changes
// to them do not leak into the request.
func NewAnalysisRequest(commit *git.CommitInfo, files []git.FileChange, project *git.ProjectContext) (AnalysisRequest, error) {
	if commit == nil {
		return AnalysisRequest{}, errors.Wrap(ErrMalformedRequest, "missing commit")
	}
	if !isFullHash(commit.Hash) {
		return AnalysisRequest{}, errors.Wrapf(ErrMalformedRequest, "invalid commit hash %q", commit.Hash)
	}

	c := *commit
	c.Parents = append([]string(nil), commit.Parents...)

	req := AnalysisRequest{
		Commit:   c,
		Files:    append([]git.FileChange(nil), files...),
		DiffBase: git.DiffBase(&c),
	}
	if project != nil {
		req.Project = git.ProjectContext{
			Files:          append([]string(nil), project.Files...),
			Directories:    append([]string(nil), project.Directories...),
			Languages:      append([]string(nil), project.Languages...),
			HasTests:       project.HasTests,
			HasCI:          project.HasCI,
			PackageManager: project.PackageManager,
		}
	} else {
		req.Project.PackageManager = git.PackageManagerNone
	}
	return req, nil
}

func isFullHash(h string) bool {
	if len(h) != hashLength {
		return false
	}
	for _, r := range h {
		if !('0' <= r && r <= '9' || 'a' <= r && r <= 'f') {
			return false
		}
	}
	return true
}

// Report is the outcome of one pipeline run
type Report struct {
	RunID      string                     `json:"run_id"`
	Commit     git.CommitInfo             `json:"commit"`
	Files      []git.FileChange           `json:"files_changed"`
	Project    git.ProjectContext         `json:"project_context"`
	DiffBase   string                     `json:"diff_base,omitempty"`
	Analysis   extractor.SemanticAnalysis `json:"analysis"`
	Provider   string                     `json:"provider"`
	Model      string                     `json:"analysis_model"`
	Usage      llm.Usage                  `json:"tokens"`
	Attempts   int                        `json:"attempts"`
	TotalWait  time.Duration              `json:"total_wait_ns"`
	AnalyzedAt time.Time                  `json:"analysis_timestamp"`
}

// TotalAdditions sums the added lines across files
func (r *Report) TotalAdditions() int {
	n := 0
	for _, f := range r.Files {
		n += f.Additions
	}
	return n
}

// TotalDeletions sums the deleted lines across files
func (r *Report) TotalDeletions() int {
	n := 0
	for _, f := range r.Files {
		n += f.Deletions
	}
	return n
}

// RangeResult is the outcome for one commit of a range. Exactly one of
// Report, Err and Skipped is set. Commits without file changes are skipped.
type RangeResult struct {
	Commit  git.CommitInfo
	Report  *Report
	Err     error
	Skipped bool
}

// Failed reports whether the commit could not be analyzed
func (r RangeResult) Failed() bool {
	return r.Err != nil
}
