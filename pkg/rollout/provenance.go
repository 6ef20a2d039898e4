package rollout

import (
	"encoding/json"
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"

	"steward-hq/steward/pkg/policy"
)

// GitProvenance reads the HEAD commit of the repository containing
// rulesDir and returns it as provenance entries. The repository is
// opened read-only; nothing is fetched or written.
func GitProvenance(rulesDir string) (map[string]string, error) {
	repo, err := gogit.PlainOpenWithOptions(rulesDir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", rulesDir, err)
	}

	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD commit: %w", err)
	}

	return map[string]string{
		"git_commit": commit.Hash.String(),
		"git_author": commit.Author.Name,
		"git_when":   commit.Author.When.UTC().Format(time.RFC3339),
	}, nil
}

// BuildBundle snapshots a rule set into a draft bundle. When rulesDir
// is under git the HEAD commit is captured as provenance; a rules
// directory outside any repository just gets no git entries.
func BuildBundle(version string, policies []*policy.Policy, rulesDir string) (*Bundle, error) {
	rules, err := json.Marshal(policies)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot rules: %w", err)
	}

	b := &Bundle{
		Version: version,
		Rules:   rules,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if rulesDir != "" {
		if provenance, err := GitProvenance(rulesDir); err == nil {
			b.Provenance = provenance
		}
	}
	return b, nil
}
