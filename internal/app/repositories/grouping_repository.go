package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/logger"
)

// GroupingRepository reads groupings and group membership
type GroupingRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewGroupingRepository creates a new GroupingRepository
func NewGroupingRepository(db *pgxpool.Pool) *GroupingRepository {
	return &GroupingRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// GetByID retrieves a grouping of the organization
func (r *GroupingRepository) GetByID(ctx context.Context, organizationID, groupingID int64) (*models.Grouping, error) {
	sql, args, err := r.sb.Select("id", "organization_id", "title", "slug").
		From("groupings").
		Where(squirrel.Eq{"id": groupingID, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get grouping query: %w", err)
	}

	g := &models.Grouping{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&g.ID, &g.OrganizationID, &g.Title, &g.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrGroupingNotFound
		}
		logger.Error().Err(err).Int64("groupingID", groupingID).Msg("Error scanning grouping row")
		return nil, fmt.Errorf("error getting grouping: %w", err)
	}
	return g, nil
}

// UserGroupTitles maps each user of the grouping to the title of their group.
// A user in several groups gets the group with the highest id.
func (r *GroupingRepository) UserGroupTitles(ctx context.Context, groupingID int64) (map[int64]string, error) {
	sql, args, err := r.sb.Select("ra.user_id", "g.title").
		From("groups g").
		Join("groups_repo_accesses gra ON gra.group_id = g.id").
		Join("repo_accesses ra ON ra.id = gra.repo_access_id").
		Where(squirrel.Eq{"g.grouping_id": groupingID}).
		Where(squirrel.NotEq{"ra.user_id": nil}).
		OrderBy("g.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user groups query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("groupingID", groupingID).Msg("Error querying user groups")
		return nil, fmt.Errorf("error querying user groups: %w", err)
	}
	defer rows.Close()

	titles := make(map[int64]string)
	for rows.Next() {
		var (
			userID int64
			title  string
		)
		if err := rows.Scan(&userID, &title); err != nil {
			return nil, fmt.Errorf("error scanning user group: %w", err)
		}
		titles[userID] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user groups: %w", err)
	}
	return titles, nil
}
