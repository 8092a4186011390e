package teams

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/rankforge/rankforge/pkg/authz"
)

// PostgresRepository implements authz.TeamRepository plus the member write
// operations the management API needs. Reads return (nil, nil) on misses;
// errors are infrastructure faults.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a team repository over an open database handle
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindMembership looks up a user's membership in a team
func (r *PostgresRepository) FindMembership(ctx context.Context, teamID int64, userID string) (*authz.Membership, error) {
	m := &authz.Membership{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, team_id, user_id, role, joined_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2`,
		teamID, userID).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return m, nil
}

// FindMembershipByID looks up a membership row by its id
func (r *PostgresRepository) FindMembershipByID(ctx context.Context, membershipID int64) (*authz.Membership, error) {
	m := &authz.Membership{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, team_id, user_id, role, joined_at
		FROM team_members
		WHERE id = $1`,
		membershipID).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to find membership by id: %w", err)
	}
	return m, nil
}

// CountOwners counts a team's owners
func (r *PostgresRepository) CountOwners(ctx context.Context, teamID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM team_members
		WHERE team_id = $1 AND role = $2`,
		teamID, authz.RoleOwner).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return count, nil
}

// ListMembers returns all members of a team ordered by join date
func (r *PostgresRepository) ListMembers(ctx context.Context, teamID int64) ([]*Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, team_id, user_id, role, joined_at, email, display_name
		FROM team_members
		WHERE team_id = $1
		ORDER BY joined_at ASC`,
		teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		member := &Member{}
		var email, displayName sql.NullString
		if err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID, &member.Role,
			&member.JoinedAt, &email, &displayName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		member.Email = email.String
		member.DisplayName = displayName.String
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// AddMember inserts a membership row
func (r *PostgresRepository) AddMember(ctx context.Context, teamID int64, userID string, role authz.Role) (*authz.Membership, error) {
	m := &authz.Membership{TeamID: teamID, UserID: userID, Role: role}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at`,
		teamID, userID, role).Scan(&m.ID, &m.JoinedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return m, nil
}

// UpdateMemberRole changes a member's role. When demoting an owner the UPDATE
// carries a subquery guard so a concurrent demotion of the other owner cannot
// leave the team ownerless: zero rows affected with the row still present
// means the guard fired.
func (r *PostgresRepository) UpdateMemberRole(ctx context.Context, membershipID int64, newRole authz.Role) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE team_members SET role = $1
		WHERE id = $2
		  AND ($1 = $3 OR role != $3 OR (
			SELECT COUNT(*) FROM team_members tm
			WHERE tm.team_id = team_members.team_id AND tm.role = $3
		  ) > 1)`,
		newRole, membershipID, authz.RoleOwner)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return r.classifyGuardMiss(ctx, membershipID)
	}
	return nil
}

// RemoveMember deletes a membership row. The DELETE refuses to remove a
// team's only owner at the SQL level, closing the window between the policy
// check and the write.
func (r *PostgresRepository) RemoveMember(ctx context.Context, membershipID int64) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM team_members
		WHERE id = $1
		  AND (role != $2 OR (
			SELECT COUNT(*) FROM team_members tm
			WHERE tm.team_id = team_members.team_id AND tm.role = $2
		  ) > 1)`,
		membershipID, authz.RoleOwner)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return r.classifyGuardMiss(ctx, membershipID)
	}
	return nil
}

// classifyGuardMiss distinguishes "row gone" from "last-owner guard fired"
// after a conditional write touched zero rows.
func (r *PostgresRepository) classifyGuardMiss(ctx context.Context, membershipID int64) error {
	existing, err := r.FindMembershipByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrMemberNotFound
	}
	return ErrLastOwner
}
