package authz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const decisionCacheSize = 4096

// Evaluator resolves an actor's membership in a team and checks it against a
// required permission. It is stateless apart from the immutable catalog and
// an optional decision cache, and is safe for concurrent use.
type Evaluator struct {
	repo         TeamRepository
	catalog      *Catalog
	cache        *expirable.LRU[string, *Decision]
	cacheEnabled bool
	onCacheHit   func()
	onCacheMiss  func()
}

// NewEvaluator creates a permission evaluator. A cacheTTL of zero disables
// the decision cache.
func NewEvaluator(repo TeamRepository, cacheTTL time.Duration) *Evaluator {
	e := &Evaluator{
		repo:         repo,
		catalog:      NewCatalog(),
		cacheEnabled: cacheTTL > 0,
	}
	if e.cacheEnabled {
		e.cache = expirable.NewLRU[string, *Decision](decisionCacheSize, nil, cacheTTL)
	}
	return e
}

// SetCacheHooks registers callbacks fired on decision-cache hits and misses,
// typically bound to cache counters. Either may be nil.
func (e *Evaluator) SetCacheHooks(onHit, onMiss func()) {
	e.onCacheHit = onHit
	e.onCacheMiss = onMiss
}

// Catalog returns the evaluator's role catalog
func (e *Evaluator) Catalog() *Catalog {
	return e.catalog
}

// CheckTeamPermission decides whether the actor's role in the team grants the
// required permission. Missing membership and insufficient roles are typed
// denials; only repository faults surface as errors. No side effects, safe to
// call repeatedly and concurrently.
func (e *Evaluator) CheckTeamPermission(ctx context.Context, actorID string, teamID int64, required Permission) (*Decision, error) {
	if e.cacheEnabled {
		if cached, ok := e.cache.Get(decisionCacheKey(teamID, actorID, required)); ok {
			if e.onCacheHit != nil {
				e.onCacheHit()
			}
			return cached, nil
		}
		if e.onCacheMiss != nil {
			e.onCacheMiss()
		}
	}

	membership, err := e.repo.FindMembership(ctx, teamID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve membership: %w", err)
	}

	var decision *Decision
	switch {
	case membership == nil:
		decision = Deny(ErrNotMember, "You are not a member of this team")
	case !e.catalog.HasPermission(membership.Role, required):
		decision = Deny(ErrInsufficientPermission,
			fmt.Sprintf("Role %q does not grant the %q permission", membership.Role, required))
		decision.Role = membership.Role
	default:
		decision = Allow(membership.Role)
	}

	if e.cacheEnabled {
		e.cache.Add(decisionCacheKey(teamID, actorID, required), decision)
	}
	return decision, nil
}

// InvalidateActor drops cached decisions for one actor in one team. Callers
// mutating memberships should invalidate before relying on fresh reads.
func (e *Evaluator) InvalidateActor(teamID int64, actorID string) {
	if !e.cacheEnabled {
		return
	}
	prefix := fmt.Sprintf("%d:%s:", teamID, actorID)
	for _, key := range e.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			e.cache.Remove(key)
		}
	}
}

func decisionCacheKey(teamID int64, actorID string, required Permission) string {
	return fmt.Sprintf("%d:%s:%s", teamID, actorID, required)
}
