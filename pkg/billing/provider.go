package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rankforge/rankforge/pkg/entitlement"
)

// PostgresProvider reads and writes team subscriptions. It implements
// entitlement.BillingStatusProvider: a team without a subscription row
// returns (nil, nil), which the entitlement guard resolves to the free tier.
type PostgresProvider struct {
	db *sql.DB
}

// NewPostgresProvider creates a billing provider over an open database handle
func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// GetEntitlement returns the team's current subscription state
func (p *PostgresProvider) GetEntitlement(ctx context.Context, teamID int64) (*entitlement.Entitlement, error) {
	ent := &entitlement.Entitlement{TeamID: teamID}
	var periodStart, periodEnd sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT plan_id, status, current_period_start, current_period_end
		FROM team_subscriptions
		WHERE team_id = $1`,
		teamID).Scan(&ent.PlanID, &ent.Status, &periodStart, &periodEnd)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	if periodStart.Valid {
		ent.CurrentPeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		ent.CurrentPeriodEnd = &periodEnd.Time
	}
	return ent, nil
}

// SetSubscription creates or replaces a team's subscription. Billing webhooks
// and admin tooling call this when a plan or payment state changes.
func (p *PostgresProvider) SetSubscription(ctx context.Context, teamID int64, planID string, status entitlement.Status, periodStart, periodEnd *time.Time) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO team_subscriptions (team_id, plan_id, status, current_period_start, current_period_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (team_id) DO UPDATE
		SET plan_id = EXCLUDED.plan_id, status = EXCLUDED.status,
		    current_period_start = EXCLUDED.current_period_start,
		    current_period_end = EXCLUDED.current_period_end,
		    updated_at = NOW()`,
		teamID, planID, status, periodStart, periodEnd)
	if err != nil {
		return fmt.Errorf("failed to set subscription: %w", err)
	}
	return nil
}

// CancelSubscription marks a team's subscription canceled. The subscription
// row is kept so the team's plan history survives; resolution falls back to
// the free tier immediately.
func (p *PostgresProvider) CancelSubscription(ctx context.Context, teamID int64) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE team_subscriptions
		SET status = $1, updated_at = NOW()
		WHERE team_id = $2`,
		entitlement.StatusCanceled, teamID)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no subscription for team %d", teamID)
	}
	return nil
}
