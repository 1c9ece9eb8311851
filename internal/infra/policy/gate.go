package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
)

// Gate adapts the rego engine to the submission check the orchestrator
// consumes. Policy denials are validation failures, not outages.
type Gate struct {
	engine *Engine
}

func NewGate(engine *Engine) *Gate {
	return &Gate{engine: engine}
}

func (g *Gate) Check(ctx context.Context, sub domain.ContentSubmission) error {
	if g == nil || g.engine == nil {
		return nil
	}
	decision, err := g.engine.Evaluate(ctx, Input{
		ContentID:   sub.ID,
		ContentType: sub.ContentType,
		License:     sub.License,
		Contributor: sub.Contributor,
	})
	if err != nil {
		return fmt.Errorf("evaluate submission policy: %w", err)
	}
	if decision.Allow {
		return nil
	}
	reasons := make([]string, 0, len(decision.Deny))
	for _, violation := range decision.Deny {
		reasons = append(reasons, violation.Message)
	}
	return fmt.Errorf("%w: submission rejected by policy: %s", domain.ErrValidation, strings.Join(reasons, "; "))
}
