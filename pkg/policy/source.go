package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"steward-hq/steward/pkg/yardstick"
)

// fileDoc is the YAML shape of a policy file. Conditions are written in
// the same single-key form as the JSON wire schema:
//
//	name: expired-promotions
//	enabled: true
//	priority: 10
//	action: archive
//	confidence_threshold: 0.8
//	condition:
//	  all:
//	    - eq: [category, promotions]
//	    - lt: [expires_at, now]
type fileDoc struct {
	Name                string            `yaml:"name"`
	Enabled             *bool             `yaml:"enabled"`
	Priority            int               `yaml:"priority"`
	Action              string            `yaml:"action"`
	Params              map[string]string `yaml:"params"`
	ConfidenceThreshold float64           `yaml:"confidence_threshold"`
	Condition           interface{}       `yaml:"condition"`
}

// FileSource loads policies from YAML files in a directory and can watch
// the directory for changes. Each file holds one policy.
type FileSource struct {
	dir    string
	logger *slog.Logger
}

// NewFileSource creates a file-based policy source rooted at dir.
func NewFileSource(dir string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		dir:    dir,
		logger: logger.With("component", "policy.source"),
	}
}

// Load parses every .yaml/.yml file under the directory. A malformed file
// fails the whole load: a rule set with silently missing rules is worse
// than a loud failure at load time.
func (s *FileSource) Load(ctx context.Context) ([]*Policy, error) {
	var policies []*Policy

	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		p, err := s.loadFile(path)
		if err != nil {
			return fmt.Errorf("policy file %q: %w", path, err)
		}
		policies = append(policies, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loaded policy files",
		"dir", s.dir,
		"policy_count", len(policies),
	)
	return policies, nil
}

// loadFile parses a single policy file and validates it.
func (s *FileSource) loadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	cond, err := conditionFromYAML(doc.Condition)
	if err != nil {
		return nil, err
	}

	enabled := true
	if doc.Enabled != nil {
		enabled = *doc.Enabled
	}

	p := &Policy{
		Name:                doc.Name,
		Enabled:             enabled,
		Priority:            doc.Priority,
		Condition:           cond,
		Action:              ActionType(doc.Action),
		Params:              doc.Params,
		ConfidenceThreshold: doc.ConfidenceThreshold,
		Provenance:          "file:" + filepath.Base(path),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// conditionFromYAML converts the YAML condition mapping into a validated
// condition tree by round-tripping through the JSON wire form, which is
// the schema of record.
func conditionFromYAML(raw interface{}) (*yardstick.Node, error) {
	if raw == nil {
		return nil, fmt.Errorf("condition is required")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("condition: %w", err)
	}
	return yardstick.ParseCondition(data)
}

// Watch watches the policy directory and invokes onChange (debounced)
// after file modifications. It blocks until the context is cancelled.
func (s *FileSource) Watch(ctx context.Context, onChange func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", s.dir, err)
	}

	s.logger.Info("policy file watcher started", "dir", s.dir)

	// Debounce so editors that write multiple events per save trigger a
	// single reload.
	const debounce = 200 * time.Millisecond
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("policy watcher error", "error", err)

		case <-fire:
			if err := onChange(); err != nil {
				s.logger.Error("policy reload failed", "error", err)
			}
		}
	}
}

// Sync loads the directory and saves every policy into the store,
// preserving IDs of policies that already exist under the same name.
func (s *FileSource) Sync(ctx context.Context, store Store) error {
	policies, err := s.Load(ctx)
	if err != nil {
		return err
	}

	for _, p := range policies {
		if existing, err := store.GetByName(ctx, p.Name); err == nil {
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
		}
		if err := store.Save(ctx, p); err != nil {
			return fmt.Errorf("sync policy %q: %w", p.Name, err)
		}
	}
	return nil
}
