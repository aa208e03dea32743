// Package authz decides whether an acting user may perform an ability.
//
// A Gate evaluates the policy defined for an ability (or, when none is
// defined, checks a permission of the same name) and then runs its
// after-hooks. An after-hook that returns handled=true replaces the
// decision. Every check runs against the team scope carried by ctx.
package authz

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
	"go.uber.org/zap"
)

var ErrUnauthorized = errors.New("this action is unauthorized")

// Policy decides a single ability. resource is the route-bound entity,
// if any.
type Policy func(ctx context.Context, user *models.User, resource any) (bool, error)

// AfterHook runs after the policy. When handled is true, allowed
// overrides the policy's decision.
type AfterHook func(ctx context.Context, user *models.User, ability string, result bool) (handled, allowed bool, err error)

// DecisionRecorder receives one call per evaluated ability.
type DecisionRecorder interface {
	RecordDecision(ability string, allowed, overridden bool)
}

type Gate struct {
	checker  rbac.Checker
	logger   *zap.Logger
	recorder DecisionRecorder

	mu       sync.RWMutex
	policies map[string]Policy
	after    []AfterHook
}

type Option func(*Gate)

func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

func WithRecorder(r DecisionRecorder) Option {
	return func(g *Gate) { g.recorder = r }
}

func NewGate(checker rbac.Checker, opts ...Option) *Gate {
	g := &Gate{
		checker:  checker,
		logger:   zap.NewNop(),
		policies: make(map[string]Policy),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Define registers the policy for ability, replacing any previous one.
func (g *Gate) Define(ability string, policy Policy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policies[ability] = policy
}

func (g *Gate) After(hook AfterHook) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.after = append(g.after, hook)
}

func (g *Gate) Allows(ctx context.Context, user *models.User, ability string, resource any) (bool, error) {
	if user == nil {
		return false, nil
	}

	g.mu.RLock()
	policy, ok := g.policies[ability]
	hooks := g.after
	g.mu.RUnlock()

	var (
		allowed bool
		err     error
	)
	if ok {
		allowed, err = policy(ctx, user, resource)
	} else {
		allowed, err = g.checker.HasPermission(ctx, user.ID, ability)
	}
	if err != nil {
		return false, fmt.Errorf("failed to evaluate %q: %w", ability, err)
	}

	teamID := rbac.TeamIDPtr(ctx)
	g.logger.Debug("authorization decision",
		zap.String("ability", ability),
		zap.Int64("user_id", user.ID),
		zap.Int64p("team_id", teamID),
		zap.Bool("allowed", allowed),
	)

	overridden := false
	for _, hook := range hooks {
		handled, result, err := hook(ctx, user, ability, allowed)
		if err != nil {
			return false, fmt.Errorf("after hook for %q: %w", ability, err)
		}
		if handled {
			overridden = overridden || result != allowed
			allowed = result
		}
	}

	if g.recorder != nil {
		g.recorder.RecordDecision(ability, allowed, overridden)
	}
	return allowed, nil
}

func (g *Gate) Denies(ctx context.Context, user *models.User, ability string, resource any) (bool, error) {
	allowed, err := g.Allows(ctx, user, ability, resource)
	return !allowed, err
}

// Authorize returns ErrUnauthorized when the ability is denied.
func (g *Gate) Authorize(ctx context.Context, user *models.User, ability string, resource any) error {
	allowed, err := g.Allows(ctx, user, ability, resource)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrUnauthorized
	}
	return nil
}

// SuperAdminBypass allows every ability for users holding the Super
// Admin role in the current team scope. Other users keep the policy's
// decision.
func SuperAdminBypass(checker rbac.Checker) AfterHook {
	return func(ctx context.Context, user *models.User, _ string, _ bool) (bool, bool, error) {
		isAdmin, err := checker.HasRole(ctx, user.ID, models.RoleSuperAdmin)
		if err != nil {
			return false, false, err
		}
		if isAdmin {
			return true, true, nil
		}
		return false, false, nil
	}
}
