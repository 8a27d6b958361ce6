package git

import (
	"context"
	"sort"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/language"
)

// ciMarkers are root entries that indicate a CI configuration
var ciMarkers = map[string]bool{
	".gitlab-ci.yml":      true,
	".circleci":           true,
	".travis.yml":         true,
	"Jenkinsfile":         true,
	"azure-pipelines.yml": true,
	".drone.yml":          true,
}

// packageManagerRules are checked in order; the first rule with a matching
// root file wins
var packageManagerRules = []struct {
	manager   PackageManager
	manifests []string
}{
	{PackageManagerNPM, []string{"package.json"}},
	{PackageManagerPip, []string{"requirements.txt", "pyproject.toml", "setup.py", "Pipfile"}},
	{PackageManagerCargo, []string{"Cargo.toml"}},
	{PackageManagerGo, []string{"go.mod"}},
}

// ProjectContext summarizes the root of the commit's tree. Only the top
// level is listed; .github is peeked into for workflows.
func (s *Service) ProjectContext(ctx context.Context, info *CommitInfo) (*ProjectContext, error) {
	const op = "git.ProjectContext"
	if err := ctx.Err(); err != nil {
		return nil, failure.FromContext(op, err)
	}
	commit, err := s.commitObject(op, info)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, failure.Wrap(failure.KindRepository, op, err)
	}

	pc := &ProjectContext{
		Files:       []string{},
		Directories: []string{},
		Languages:   []string{},
	}
	rootFiles := map[string]bool{}
	languages := map[string]bool{}

	for _, entry := range tree.Entries {
		isDir := entry.Mode == filemode.Dir || entry.Mode == filemode.Submodule
		if isDir {
			pc.Directories = append(pc.Directories, entry.Name)
		} else {
			pc.Files = append(pc.Files, entry.Name)
			rootFiles[entry.Name] = true
			if lang := language.Detect(entry.Name); lang != language.Unknown {
				languages[lang] = true
			}
		}

		if language.IsTestPath(entry.Name) {
			pc.HasTests = true
		}
		if ciMarkers[entry.Name] {
			pc.HasCI = true
		}
	}

	if _, err := tree.Tree(".github/workflows"); err == nil {
		pc.HasCI = true
	}

	for lang := range languages {
		pc.Languages = append(pc.Languages, lang)
	}
	sort.Strings(pc.Languages)
	pc.PackageManager = detectPackageManager(rootFiles)

	return pc, nil
}

func detectPackageManager(rootFiles map[string]bool) PackageManager {
	for _, rule := range packageManagerRules {
		for _, manifest := range rule.manifests {
			if rootFiles[manifest] {
				return rule.manager
			}
		}
	}
	return PackageManagerNone
}
