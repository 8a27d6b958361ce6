// Package git extracts commit metadata, per-file diffs and project context
// from a repository using go-git.
package git

import (
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

const (
	// ShortHashLength is the length of CommitInfo.ShortHash
	ShortHashLength = 8

	// MaxDiffChars caps the stored diff text of one file, in characters
	MaxDiffChars = 5000

	// TruncationMarker is appended to a diff cut at MaxDiffChars
	TruncationMarker = "\n... [diff truncated]"
)

// CommitInfo is the metadata of one commit. Timestamp is the committer date.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"short_hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Parents   []string  `json:"parents"`
}

// IsRoot reports whether the commit has no parents
func (c CommitInfo) IsRoot() bool {
	return len(c.Parents) == 0
}

// IsMerge reports whether the commit has more than one parent
func (c CommitInfo) IsMerge() bool {
	return len(c.Parents) > 1
}

// AuthorIdentity returns "Name <email>"
func (c CommitInfo) AuthorIdentity() string {
	return c.Author + " <" + c.Email + ">"
}

// ChangeStatus is how a file changed in a commit
type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "added"
	StatusModified ChangeStatus = "modified"
	StatusDeleted  ChangeStatus = "deleted"
	StatusRenamed  ChangeStatus = "renamed"
)

// DiffState tags whether a file's diff text could be produced
type DiffState string

const (
	// DiffAvailable means Diff holds the (possibly truncated) patch
	DiffAvailable DiffState = "available"
	// DiffBinary means the file is not text; Diff is empty and counts are zero
	DiffBinary DiffState = "binary"
	// DiffUnavailable means the patch could not be generated; see DiffError
	DiffUnavailable DiffState = "unavailable"
)

// FileChange is one changed file in a commit
type FileChange struct {
	Path      string       `json:"path"`
	OldPath   string       `json:"old_path,omitempty"`
	Status    ChangeStatus `json:"status"`
	Language  string       `json:"language"`
	Diff      string       `json:"diff,omitempty"`
	Truncated bool         `json:"truncated,omitempty"`
	Additions int          `json:"additions"`
	Deletions int          `json:"deletions"`
	IsBinary  bool         `json:"is_binary"`
	DiffState DiffState    `json:"diff_state"`
	DiffError string       `json:"diff_error,omitempty"`
}

// DisplayPath returns "old -> new" for renames and the path otherwise
func (f FileChange) DisplayPath() string {
	if f.Status == StatusRenamed && f.OldPath != "" {
		return f.OldPath + " -> " + f.Path
	}
	return f.Path
}

// FileError describes a file whose diff could not be produced
type FileError struct {
	Path  string
	Cause string
}

func (e *FileError) Error() string {
	return e.Path + ": " + e.Cause
}

// DiffErrors collects the unavailable diffs of files into one error, or nil
func DiffErrors(files []FileChange) error {
	var result *multierror.Error
	for _, f := range files {
		if f.DiffState == DiffUnavailable {
			result = multierror.Append(result, &FileError{Path: f.Path, Cause: f.DiffError})
		}
	}
	return result.ErrorOrNil()
}

// PackageManager is the dependency manager detected at the repository root
type PackageManager string

const (
	PackageManagerNPM   PackageManager = "npm"
	PackageManagerPip   PackageManager = "pip"
	PackageManagerCargo PackageManager = "cargo"
	PackageManagerGo    PackageManager = "go"
	PackageManagerNone  PackageManager = "none"
)

// ProjectContext is a shallow summary of the repository root
type ProjectContext struct {
	Files          []string       `json:"root_files"`
	Directories    []string       `json:"directories"`
	Languages      []string       `json:"languages"`
	HasTests       bool           `json:"has_tests"`
	HasCI          bool           `json:"has_ci"`
	PackageManager PackageManager `json:"package_manager"`
}

// TruncateDiff cuts text to MaxDiffChars characters and appends TruncationMarker.
// It reports whether the text was cut.
func TruncateDiff(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= MaxDiffChars {
		return text, false
	}
	count := 0
	for i := range text {
		if count == MaxDiffChars {
			return text[:i] + TruncationMarker, true
		}
		count++
	}
	return text, false
}
