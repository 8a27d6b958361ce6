package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/language"
	"github.com/tildaslashalef/semdiff/internal/loggy"
)

// Service reads commits from one repository. It never writes to it.
type Service struct {
	logger *loggy.Logger
	repo   *git.Repository
}

// NewService creates a new Git service
func NewService(logger *loggy.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

// InitRepo opens the repository at repoPath, searching parent directories for .git
func (s *Service) InitRepo(repoPath string) error {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return failure.Wrap(failure.KindRepository, "git.InitRepo", fmt.Errorf("opening git repo %s: %w", repoPath, err))
	}

	s.repo = repo
	return nil
}

func (s *Service) ensureRepo(op string) error {
	if s.repo == nil {
		return failure.New(failure.KindRepository, op, "git repository not initialized")
	}
	return nil
}

// ResolveCommit resolves a revision (hash, abbreviated hash, branch, tag,
// HEAD, HEAD~n) to commit metadata
func (s *Service) ResolveCommit(ctx context.Context, ref string) (*CommitInfo, error) {
	const op = "git.ResolveCommit"
	if err := s.ensureRepo(op); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, failure.FromContext(op, err)
	}

	commit, err := s.resolve(ref)
	if err != nil {
		return nil, failure.Wrap(failure.KindNotFound, op, err)
	}

	return newCommitInfo(commit), nil
}

func (s *Service) resolve(ref string) (*object.Commit, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("empty revision")
	}

	hash, err := s.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("resolving revision %q: %w", ref, err)
	}

	commit, err := s.repo.CommitObject(*hash)
	if err == nil {
		return commit, nil
	}

	// annotated tags resolve to the tag object
	tag, tagErr := s.repo.TagObject(*hash)
	if tagErr != nil {
		return nil, fmt.Errorf("getting commit object %s: %w", hash, err)
	}
	commit, err = tag.Commit()
	if err != nil {
		return nil, fmt.Errorf("peeling tag %s: %w", tag.Name, err)
	}
	return commit, nil
}

func newCommitInfo(commit *object.Commit) *CommitInfo {
	hash := commit.Hash.String()
	parents := make([]string, 0, len(commit.ParentHashes))
	for _, p := range commit.ParentHashes {
		parents = append(parents, p.String())
	}

	return &CommitInfo{
		Hash:      hash,
		ShortHash: hash[:ShortHashLength],
		Message:   strings.TrimSpace(commit.Message),
		Author:    commit.Author.Name,
		Email:     commit.Author.Email,
		Timestamp: commit.Committer.When,
		Parents:   parents,
	}
}

func (s *Service) commitObject(op string, info *CommitInfo) (*object.Commit, error) {
	if err := s.ensureRepo(op); err != nil {
		return nil, err
	}
	if info == nil {
		return nil, failure.New(failure.KindNotFound, op, "nil commit")
	}
	commit, err := s.repo.CommitObject(plumbing.NewHash(info.Hash))
	if err != nil {
		return nil, failure.Wrap(failure.KindNotFound, op, fmt.Errorf("getting commit object: %w", err))
	}
	return commit, nil
}

// FileChanges lists the files changed by commit. Root commits are diffed
// against the empty tree; merge commits against their first parent only.
func (s *Service) FileChanges(ctx context.Context, info *CommitInfo) ([]FileChange, error) {
	const op = "git.FileChanges"
	if err := ctx.Err(); err != nil {
		return nil, failure.FromContext(op, err)
	}
	commit, err := s.commitObject(op, info)
	if err != nil {
		return nil, err
	}

	changes, err := s.commitChanges(ctx, commit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, failure.FromContext(op, ctxErr)
		}
		return nil, failure.Wrap(failure.KindRepository, op, err)
	}

	files := make([]FileChange, 0, len(changes))
	for _, change := range changes {
		file, err := s.processChange(ctx, change)
		if err != nil {
			return nil, failure.FromContext(op, err)
		}
		files = append(files, file)
	}

	s.logger.Debug("Extracted file changes", "commit", info.ShortHash, "files", len(files))
	return files, nil
}

// DiffBase returns the hash the commit is diffed against, or "" for the empty tree
func DiffBase(info *CommitInfo) string {
	if info == nil || info.IsRoot() {
		return ""
	}
	return info.Parents[0]
}

func (s *Service) commitChanges(ctx context.Context, commit *object.Commit) (object.Changes, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting commit tree: %w", err)
	}

	parentTree := &object.Tree{}
	if commit.NumParents() > 0 {
		if commit.NumParents() > 1 {
			s.logger.Debug("Merge commit, diffing against first parent",
				"commit", commit.Hash.String(),
				"parents", commit.NumParents())
		}
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("getting parent commit: %w", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("getting parent tree: %w", err)
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}
	return changes, nil
}

// processChange builds a FileChange. The only error it returns is a context
// error; anything else degrades the file to DiffUnavailable.
func (s *Service) processChange(ctx context.Context, change *object.Change) (FileChange, error) {
	status, err := changeStatus(change)
	if err != nil {
		return FileChange{}, fmt.Errorf("classifying change: %w", err)
	}

	file := FileChange{Status: status, Path: change.To.Name}
	switch status {
	case StatusDeleted:
		file.Path = change.From.Name
	case StatusRenamed:
		file.OldPath = change.From.Name
	}
	file.Language = language.Detect(file.Path)

	patch, err := change.PatchContext(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return FileChange{}, ctxErr
		}
		s.logger.Warn("Failed to generate patch", "path", file.Path, "error", err)
		file.DiffState = DiffUnavailable
		file.DiffError = err.Error()
		return file, nil
	}

	text := patch.String()
	if isBinaryPatch(patch) || !utf8.ValidString(text) {
		file.IsBinary = true
		file.DiffState = DiffBinary
		return file, nil
	}

	for _, stat := range patch.Stats() {
		file.Additions += stat.Addition
		file.Deletions += stat.Deletion
	}
	file.Diff, file.Truncated = TruncateDiff(text)
	file.DiffState = DiffAvailable
	return file, nil
}

func isBinaryPatch(patch *object.Patch) bool {
	for _, fp := range patch.FilePatches() {
		if fp.IsBinary() {
			return true
		}
	}
	return false
}

func changeStatus(change *object.Change) (ChangeStatus, error) {
	action, err := change.Action()
	if err != nil {
		return "", err
	}

	switch action {
	case merkletrie.Insert:
		return StatusAdded, nil
	case merkletrie.Delete:
		return StatusDeleted, nil
	default:
		if change.From.Name != change.To.Name {
			return StatusRenamed, nil
		}
		return StatusModified, nil
	}
}

// ListRange returns the commits reachable from to but not from from, oldest first
func (s *Service) ListRange(ctx context.Context, from, to string) ([]*CommitInfo, error) {
	const op = "git.ListRange"
	if err := s.ensureRepo(op); err != nil {
		return nil, err
	}

	fromCommit, err := s.resolve(from)
	if err != nil {
		return nil, failure.Wrap(failure.KindNotFound, op, err)
	}
	toCommit, err := s.resolve(to)
	if err != nil {
		return nil, failure.Wrap(failure.KindNotFound, op, err)
	}

	excluded := map[plumbing.Hash]bool{}
	err = object.NewCommitPreorderIter(fromCommit, nil, nil).ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		excluded[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, s.rangeError(ctx, op, err)
	}

	var commits []*CommitInfo
	err = object.NewCommitPreorderIter(toCommit, excluded, nil).ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !excluded[c.Hash] {
			commits = append(commits, newCommitInfo(c))
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, s.rangeError(ctx, op, err)
	}

	ordered := oldestFirst(commits)
	s.logger.Debug("Listed commit range", "from", from, "to", to, "commits", len(ordered))
	return ordered, nil
}

// oldestFirst orders commits so every commit follows its parents in the set
func oldestFirst(commits []*CommitInfo) []*CommitInfo {
	byHash := make(map[string]*CommitInfo, len(commits))
	for _, c := range commits {
		byHash[c.Hash] = c
	}

	ordered := make([]*CommitInfo, 0, len(commits))
	visited := make(map[string]bool, len(commits))
	var visit func(c *CommitInfo)
	visit = func(c *CommitInfo) {
		if visited[c.Hash] {
			return
		}
		visited[c.Hash] = true
		for _, p := range c.Parents {
			if parent, ok := byHash[p]; ok {
				visit(parent)
			}
		}
		ordered = append(ordered, c)
	}

	// preorder from the tip visits descendants first, so walk it backwards
	for i := len(commits) - 1; i >= 0; i-- {
		visit(commits[i])
	}
	return ordered
}

func (s *Service) rangeError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return failure.FromContext(op, ctxErr)
	}
	return failure.Wrap(failure.KindRepository, op, fmt.Errorf("walking history: %w", err))
}
