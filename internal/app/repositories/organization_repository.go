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

var organizationColumns = []string{"id", "github_id", "title", "slug", "roster_id", "google_course_id", "created_at", "updated_at"}

// OrganizationRepository handles organization database operations
type OrganizationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	org := &models.Organization{}
	err := row.Scan(&org.ID, &org.GitHubID, &org.Title, &org.Slug, &org.RosterID, &org.GoogleCourseID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (r *OrganizationRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Organization, error) {
	sql, args, err := r.sb.Select(organizationColumns...).
		From("organizations").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get organization query: %w", err)
	}

	org, err := scanOrganization(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrganizationNotFound
		}
		logger.Error().Err(err).Msg("Error scanning organization row")
		return nil, fmt.Errorf("error getting organization: %w", err)
	}
	return org, nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetBySlug retrieves an organization by its URL slug
func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return r.getOne(ctx, squirrel.Eq{"slug": slug})
}

// IsMember reports whether the user is an instructor of the organization
func (r *OrganizationRepository) IsMember(ctx context.Context, organizationID, userID int64) (bool, error) {
	sql, args, err := r.sb.Select("1").
		From("organizations_users").
		Where(squirrel.Eq{"organization_id": organizationID, "user_id": userID}).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build organization membership query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		logger.Error().Err(err).Int64("organizationID", organizationID).Int64("userID", userID).Msg("Error checking organization membership")
		return false, fmt.Errorf("error checking organization membership: %w", err)
	}
	return exists, nil
}

// Create inserts an organization
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	sql, args, err := r.sb.Insert("organizations").
		Columns("github_id", "title", "slug").
		Values(org.GitHubID, org.Title, org.Slug).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create organization query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
		logger.Error().Err(err).Str("slug", org.Slug).Msg("Error creating organization")
		return fmt.Errorf("error creating organization: %w", err)
	}
	return nil
}

// AddMember grants a user instructor access to the organization
func (r *OrganizationRepository) AddMember(ctx context.Context, organizationID, userID int64) error {
	sql, args, err := r.sb.Insert("organizations_users").
		Columns("organization_id", "user_id").
		Values(organizationID, userID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build add member query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error adding organization member: %w", err)
	}
	return nil
}
