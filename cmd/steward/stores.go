package main

import (
	"errors"
	"fmt"
	"os"

	"steward-hq/steward/pkg/audit"
	"steward-hq/steward/pkg/config"
	"steward-hq/steward/pkg/policy"
	"steward-hq/steward/pkg/proposal"
	"steward-hq/steward/pkg/rollout"
	"steward-hq/steward/pkg/settings"
)

// stores bundles every persistence backend one command invocation needs.
type stores struct {
	proposals proposal.Store
	policies  policy.Store
	settings  settings.Store
	bundles   rollout.Store
	audits    audit.Store
}

// openStores opens all backends for the configured storage backend.
// On error, anything already opened is closed.
func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return &stores{
			proposals: proposal.NewMemoryStore(),
			policies:  policy.NewMemoryStore(),
			settings:  settings.NewMemoryStore(),
			bundles:   rollout.NewMemoryStore(),
			audits:    audit.NewMemoryStore(),
		}, nil

	case "sqlite":
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage dir %q: %w", cfg.Storage.Dir, err)
		}

		s := &stores{}
		var err error

		if s.proposals, err = proposal.NewSQLiteStore(cfg.Storage.ProposalPath); err != nil {
			return nil, fmt.Errorf("opening proposal store: %w", err)
		}
		if s.policies, err = policy.NewSQLiteStore(cfg.Storage.PolicyPath); err != nil {
			s.Close()
			return nil, fmt.Errorf("opening policy store: %w", err)
		}
		if s.settings, err = settings.NewSQLiteStore(cfg.Storage.SettingsPath); err != nil {
			s.Close()
			return nil, fmt.Errorf("opening settings store: %w", err)
		}
		if s.bundles, err = rollout.NewSQLiteStore(cfg.Storage.BundlePath); err != nil {
			s.Close()
			return nil, fmt.Errorf("opening bundle store: %w", err)
		}
		if s.audits, err = audit.NewSQLiteStore(&audit.SQLiteConfig{Path: cfg.Storage.AuditPath}); err != nil {
			s.Close()
			return nil, fmt.Errorf("opening audit store: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

// Close closes every opened backend and joins the errors.
func (s *stores) Close() error {
	var errs []error
	for _, c := range []interface{ Close() error }{
		s.proposals, s.policies, s.settings, s.bundles, s.audits,
	} {
		if c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// loadConfig initializes the global configuration from the --config flag.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config.GetConfig(), nil
}
