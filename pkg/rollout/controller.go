package rollout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"steward-hq/steward/pkg/settings"
)

const (
	// defaultCanaryPct is the initial traffic share for a freshly
	// activated bundle.
	defaultCanaryPct = 10

	// minSoakTime is how long a bundle must be active before it
	// becomes eligible for promotion, regardless of gate results.
	minSoakTime = 24 * time.Hour
)

// Controller drives the bundle lifecycle: activate at a canary
// percentage, promote in increasing steps, roll back to the previous
// version when things go wrong.
type Controller struct {
	bundles    Store
	settings   settings.Store
	incidents  IncidentSink
	logger     *slog.Logger
	defaultPct float64
	minSoak    time.Duration
	now        func() time.Time
}

// ControllerConfig assembles a Controller. Bundles is required;
// Settings may be nil when runtime settings are managed elsewhere;
// a nil Incidents defaults to the logging sink. Zero DefaultCanaryPct
// and MinSoakTime select the package defaults.
type ControllerConfig struct {
	Bundles          Store
	Settings         settings.Store
	Incidents        IncidentSink
	Logger           *slog.Logger
	DefaultCanaryPct float64
	MinSoakTime      time.Duration
}

// NewController creates a rollout controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Bundles == nil {
		return nil, fmt.Errorf("bundle store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	incidents := cfg.Incidents
	if incidents == nil {
		incidents = NewLogSink(logger)
	}
	defaultPct := cfg.DefaultCanaryPct
	if defaultPct <= 0 {
		defaultPct = defaultCanaryPct
	}
	minSoak := cfg.MinSoakTime
	if minSoak <= 0 {
		minSoak = minSoakTime
	}
	return &Controller{
		bundles:    cfg.Bundles,
		settings:   cfg.Settings,
		incidents:  incidents,
		logger:     logger.With("component", "rollout.controller"),
		defaultPct: defaultPct,
		minSoak:    minSoak,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the time source, for tests.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Activate makes a bundle the active one at the given canary
// percentage, deactivating whichever bundle was active before. The
// approval ID must be present; its legitimacy is established by the
// external approval gate, not here. A zero pct selects the default.
func (c *Controller) Activate(ctx context.Context, bundleID, approvalID, actor string, pct float64) (*Bundle, error) {
	if approvalID == "" {
		return nil, &ValidationError{Field: "approval_id", Message: "activation requires an approval"}
	}
	if pct == 0 {
		pct = c.defaultPct
	}
	if pct < 0 || pct > 100 {
		return nil, &ValidationError{Field: "canary_pct", Message: fmt.Sprintf("canary_pct %v outside (0, 100]", pct)}
	}

	b, err := c.bundles.Activate(ctx, bundleID, pct, actor, approvalID, c.now())
	if err != nil {
		return nil, err
	}

	c.logger.Info("bundle activated",
		"version", b.Version,
		"canary_pct", pct,
		"actor", actor,
		"approval_id", approvalID,
	)
	return b, nil
}

// Promote raises an active bundle's canary percentage. The target
// must be strictly greater than the current percentage and at most
// 100. Promote deliberately performs no gate check: callers decide
// with CheckGates and Status first, Promote is just the mechanism.
func (c *Controller) Promote(ctx context.Context, bundleID string, targetPct float64) (*Bundle, error) {
	if targetPct > 100 {
		return nil, &ValidationError{Field: "canary_pct", Message: fmt.Sprintf("canary_pct %v outside (0, 100]", targetPct)}
	}

	b, err := c.bundles.Get(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if !b.Active {
		return nil, stateErr(KindBundleInactive, b.Version, "cannot promote an inactive bundle")
	}
	if targetPct <= b.CanaryPct {
		return nil, stateErr(KindNotIncreasing, b.Version, "target %v is not greater than current %v", targetPct, b.CanaryPct)
	}

	promoted, err := c.bundles.Promote(ctx, bundleID, targetPct)
	if err != nil {
		return nil, err
	}

	c.logger.Info("bundle promoted",
		"version", promoted.Version,
		"from_pct", b.CanaryPct,
		"to_pct", targetPct,
	)
	return promoted, nil
}

// Rollback deactivates an active bundle and reactivates the most
// recently activated other bundle at full traffic. The reactivated
// bundle keeps its original approval; the rollback is stamped into
// its provenance. When createIncident is set a high-severity incident
// is emitted.
func (c *Controller) Rollback(ctx context.Context, bundleID, reason, actor string, createIncident bool) (*Bundle, error) {
	current, err := c.bundles.Get(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if !current.Active {
		return nil, stateErr(KindBundleInactive, current.Version, "cannot roll back an inactive bundle")
	}

	target, err := c.rollbackTarget(ctx, current)
	if err != nil {
		return nil, err
	}

	now := c.now()
	reactivated, err := c.bundles.Activate(ctx, target.ID, 100, actor, target.ApprovalID, now)
	if err != nil {
		return nil, err
	}

	if err := c.bundles.StampProvenance(ctx, target.ID, map[string]string{
		"rolled_back_from": current.Version,
		"rollback_reason":  reason,
		"rollback_at":      now.Format(time.RFC3339),
		"rollback_by":      actor,
	}); err != nil {
		c.logger.Error("failed to stamp rollback provenance",
			"version", target.Version,
			"error", err,
		)
	}

	if c.settings != nil {
		_, err := c.settings.Update(ctx, actor, fmt.Sprintf("rollback of %s: %s", current.Version, reason), func(s *settings.Settings) error {
			s.CanaryPct = 0
			return nil
		})
		if err != nil {
			c.logger.Error("failed to zero canary traffic after rollback", "error", err)
		}
	}

	c.logger.Warn("bundle rolled back",
		"from_version", current.Version,
		"to_version", target.Version,
		"reason", reason,
		"actor", actor,
	)

	if createIncident {
		incident := &Incident{
			Title:    fmt.Sprintf("policy bundle %s rolled back to %s", current.Version, target.Version),
			Severity: SeverityHigh,
			Context: map[string]string{
				"from_version": current.Version,
				"to_version":   target.Version,
				"reason":       reason,
			},
		}
		if err := c.incidents.Emit(ctx, incident); err != nil {
			c.logger.Error("failed to emit rollback incident", "error", err)
		}
	}

	return reactivated, nil
}

// rollbackTarget picks the most recently activated bundle other than
// current. Selection is by activation timestamp, not version order,
// so the target is whatever was serving before this bundle took over.
func (c *Controller) rollbackTarget(ctx context.Context, current *Bundle) (*Bundle, error) {
	all, err := c.bundles.List(ctx)
	if err != nil {
		return nil, err
	}

	var target *Bundle
	for _, b := range all {
		if b.ID == current.ID || b.ActivatedAt.IsZero() {
			continue
		}
		if target == nil || b.ActivatedAt.After(target.ActivatedAt) {
			target = b
		}
	}
	if target == nil {
		return nil, stateErr(KindNoRollbackTarget, current.Version, "no previously activated bundle to roll back to")
	}
	return target, nil
}

// Status returns the read-only canary projection of a bundle.
func (c *Controller) Status(ctx context.Context, bundleID string) (*Status, error) {
	b, err := c.bundles.Get(ctx, bundleID)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Version:   b.Version,
		Active:    b.Active,
		CanaryPct: b.CanaryPct,
	}
	if b.Active && !b.ActivatedAt.IsZero() {
		st.TimeActive = c.now().Sub(b.ActivatedAt)
		st.PromotionEligible = st.TimeActive >= c.minSoak && b.CanaryPct < 100
	}
	return st, nil
}
