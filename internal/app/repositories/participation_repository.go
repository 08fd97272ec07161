package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/classroom/internal/pkg/logger"
)

// ParticipationRepository answers which users took part in an organization's
// assignments and group assignments.
type ParticipationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewParticipationRepository creates a new ParticipationRepository
func NewParticipationRepository(db *pgxpool.Pool) *ParticipationRepository {
	return &ParticipationRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// AssignmentParticipantIDs returns users with a repository for any assignment
// of the organization.
func (r *ParticipationRepository) AssignmentParticipantIDs(ctx context.Context, organizationID int64) ([]int64, error) {
	q := r.sb.Select("DISTINCT ar.user_id").
		From("assignment_repos ar").
		Join("assignments a ON a.id = ar.assignment_id").
		Where(squirrel.Eq{"a.organization_id": organizationID}).
		Where(squirrel.NotEq{"ar.user_id": nil}).
		OrderBy("ar.user_id")
	return r.userIDs(ctx, q, organizationID)
}

// GroupParticipantIDs returns users whose repo access belongs to a group of one
// of the organization's groupings.
func (r *ParticipationRepository) GroupParticipantIDs(ctx context.Context, organizationID int64) ([]int64, error) {
	q := r.sb.Select("DISTINCT ra.user_id").
		From("repo_accesses ra").
		Join("groups_repo_accesses gra ON gra.repo_access_id = ra.id").
		Join("groups g ON g.id = gra.group_id").
		Join("groupings gp ON gp.id = g.grouping_id").
		Where(squirrel.Eq{"gp.organization_id": organizationID}).
		Where(squirrel.NotEq{"ra.user_id": nil}).
		OrderBy("ra.user_id")
	return r.userIDs(ctx, q, organizationID)
}

func (r *ParticipationRepository) userIDs(ctx context.Context, q squirrel.SelectBuilder, organizationID int64) ([]int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build participants query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("organizationID", organizationID).Msg("Error querying participants")
		return nil, fmt.Errorf("error querying participants: %w", err)
	}
	return collectInt64s(rows)
}
