package orgs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/platinummonkey/coachgate/pkg/auth"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// PostgresService implements Service on top of database/sql
type PostgresService struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresService creates a new membership store
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db, now: time.Now}
}

// DB returns the underlying connection pool
func (s *PostgresService) DB() *sql.DB {
	return s.db
}

// FindMembership returns the membership of userID in orgID
func (s *PostgresService) FindMembership(ctx context.Context, userID, orgID string) (*Membership, error) {
	query := `
		SELECT id, user_id, organization_id, role, invited_by, created_at, updated_at
		FROM organization_members
		WHERE user_id = $1 AND organization_id = $2
	`
	member, err := scanMembership(s.db.QueryRowContext(ctx, query, userID, orgID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return member, nil
}

// ListMembers retrieves all members of an organization
func (s *PostgresService) ListMembers(ctx context.Context, orgID string) ([]*Membership, error) {
	query := `
		SELECT id, user_id, organization_id, role, invited_by, created_at, updated_at
		FROM organization_members
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		member, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

// ListCoachUserIDs returns the ids of every admin or owner of the organization.
// An empty slice is returned when there are none.
func (s *PostgresService) ListCoachUserIDs(ctx context.Context, orgID string) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM organization_members
		WHERE organization_id = $1 AND role IN ('admin', 'owner')
		ORDER BY user_id
	`
	ids, err := s.listUserIDs(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coaches: %w", err)
	}
	return ids, nil
}

// ListAthleteUserIDs returns the ids of every member-role user of the organization
func (s *PostgresService) ListAthleteUserIDs(ctx context.Context, orgID string) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM organization_members
		WHERE organization_id = $1 AND role = 'member'
		ORDER BY user_id
	`
	ids, err := s.listUserIDs(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list athletes: %w", err)
	}
	return ids, nil
}

func (s *PostgresService) listUserIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddMember adds a user to an organization
func (s *PostgresService) AddMember(ctx context.Context, orgID, userID string, role auth.Role, invitedBy *string) (*Membership, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("failed to add member: %w: %q", auth.ErrInvalidRole, role)
	}

	now := s.now().UTC()
	member := &Membership{
		ID:             uuid.New().String(),
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		InvitedBy:      invitedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := `
		INSERT INTO organization_members (id, organization_id, user_id, role, invited_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		member.ID, orgID, userID, string(role), invitedBy, now, now,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return nil, ErrMemberExists
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// UpdateMemberRole updates a member's role
func (s *PostgresService) UpdateMemberRole(ctx context.Context, orgID, userID string, role auth.Role) error {
	if !role.Valid() {
		return fmt.Errorf("failed to update member role: %w: %q", auth.ErrInvalidRole, role)
	}

	query := `UPDATE organization_members SET role = $1, updated_at = $2 WHERE organization_id = $3 AND user_id = $4`
	result, err := s.db.ExecContext(ctx, query, string(role), s.now().UTC(), orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMembershipNotFound
	}

	return nil
}

// RemoveMember removes a user from an organization
func (s *PostgresService) RemoveMember(ctx context.Context, orgID, userID string) error {
	query := `DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`
	result, err := s.db.ExecContext(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMembershipNotFound
	}

	return nil
}

// scanMembership scans a membership from a database row
func scanMembership(scanner interface {
	Scan(dest ...interface{}) error
}) (*Membership, error) {
	var member Membership
	var role string
	var invitedBy sql.NullString

	err := scanner.Scan(
		&member.ID, &member.UserID, &member.OrganizationID, &role,
		&invitedBy, &member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	member.Role, err = auth.ParseRole(role)
	if err != nil {
		return nil, err
	}
	if invitedBy.Valid {
		v := invitedBy.String
		member.InvitedBy = &v
	}

	return &member, nil
}
