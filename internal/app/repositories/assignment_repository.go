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

// AssignmentRepository reads assignments and their repositories
type AssignmentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAssignmentRepository creates a new AssignmentRepository
func NewAssignmentRepository(db *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// GetByID retrieves an assignment that belongs to the organization
func (r *AssignmentRepository) GetByID(ctx context.Context, organizationID, assignmentID int64) (*models.Assignment, error) {
	sql, args, err := r.sb.Select("id", "organization_id", "title", "slug", "created_at").
		From("assignments").
		Where(squirrel.Eq{"id": assignmentID, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get assignment query: %w", err)
	}

	a := &models.Assignment{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.OrganizationID, &a.Title, &a.Slug, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		logger.Error().Err(err).Int64("assignmentID", assignmentID).Msg("Error scanning assignment row")
		return nil, fmt.Errorf("error getting assignment: %w", err)
	}
	return a, nil
}

// Create inserts an assignment
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	sql, args, err := r.sb.Insert("assignments").
		Columns("organization_id", "title", "slug").
		Values(a.OrganizationID, a.Title, a.Slug).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create assignment query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("error creating assignment: %w", err)
	}
	return nil
}

// CreateRepo records a repository created by accepting the assignment
func (r *AssignmentRepository) CreateRepo(ctx context.Context, repo *models.AssignmentRepo) error {
	sql, args, err := r.sb.Insert("assignment_repos").
		Columns("assignment_id", "user_id", "github_repo_id").
		Values(repo.AssignmentID, repo.UserID, repo.GitHubRepoID).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create assignment repo query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&repo.ID, &repo.CreatedAt); err != nil {
		return fmt.Errorf("error creating assignment repo: %w", err)
	}
	return nil
}

// UserIDsWithRepos returns the users holding a repository for the assignment
func (r *AssignmentRepository) UserIDsWithRepos(ctx context.Context, assignmentID int64) ([]int64, error) {
	sql, args, err := r.sb.Select("DISTINCT user_id").
		From("assignment_repos").
		Where(squirrel.Eq{"assignment_id": assignmentID}).
		Where(squirrel.NotEq{"user_id": nil}).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build assignment repo users query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("assignmentID", assignmentID).Msg("Error querying assignment repo users")
		return nil, fmt.Errorf("error querying assignment repo users: %w", err)
	}
	return collectInt64s(rows)
}
