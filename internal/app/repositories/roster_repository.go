package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/db"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/logger"
)

// RosterRepository handles roster database operations
type RosterRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRosterRepository creates a new RosterRepository
func NewRosterRepository(db *pgxpool.Pool) *RosterRepository {
	return &RosterRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// GetByID retrieves a roster without its entries
func (r *RosterRepository) GetByID(ctx context.Context, id int64) (*models.Roster, error) {
	sql, args, err := r.sb.Select("id", "identifier_name", "created_at", "updated_at").
		From("rosters").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get roster query: %w", err)
	}

	roster := &models.Roster{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&roster.ID, &roster.IdentifierName, &roster.CreatedAt, &roster.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRosterNotFound
		}
		logger.Error().Err(err).Int64("rosterID", id).Msg("Error scanning roster row")
		return nil, fmt.Errorf("error getting roster: %w", err)
	}
	return roster, nil
}

// CreateForOrganization inserts the roster with its entries and attaches it to
// the organization. googleCourseID, when set, is stored on the organization.
// Nothing is written unless every step succeeds.
func (r *RosterRepository) CreateForOrganization(ctx context.Context, organizationID int64, roster *models.Roster, googleCourseID *string) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		lockSQL, lockArgs, err := r.sb.Select("roster_id").
			From("organizations").
			Where(squirrel.Eq{"id": organizationID}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build lock organization query: %w", err)
		}

		var currentRosterID *int64
		if err := tx.QueryRow(ctx, lockSQL, lockArgs...).Scan(&currentRosterID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrOrganizationNotFound
			}
			return fmt.Errorf("error locking organization: %w", err)
		}
		if currentRosterID != nil {
			return apperrors.ErrRosterAlreadyExists
		}

		insertSQL, insertArgs, err := r.sb.Insert("rosters").
			Columns("identifier_name").
			Values(roster.IdentifierName).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create roster query: %w", err)
		}
		if err := tx.QueryRow(ctx, insertSQL, insertArgs...).Scan(&roster.ID, &roster.CreatedAt, &roster.UpdatedAt); err != nil {
			return fmt.Errorf("error creating roster: %w", err)
		}

		for _, entry := range roster.Entries {
			entry.RosterID = roster.ID
		}
		if err := insertEntries(ctx, tx, r.sb, roster.Entries); err != nil {
			return err
		}

		update := r.sb.Update("organizations").
			Set("roster_id", roster.ID).
			Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
			Where(squirrel.Eq{"id": organizationID})
		if googleCourseID != nil {
			update = update.Set("google_course_id", *googleCourseID)
		}
		updateSQL, updateArgs, err := update.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build attach roster query: %w", err)
		}
		if _, err := tx.Exec(ctx, updateSQL, updateArgs...); err != nil {
			return fmt.Errorf("error attaching roster to organization: %w", err)
		}

		return nil
	})
}

// RemoveFromOrganization detaches the roster from the organization and deletes
// it when no other organization still references it. Both happen in one
// transaction so an unreferenced roster is never visible.
func (r *RosterRepository) RemoveFromOrganization(ctx context.Context, organizationID, rosterID int64) (deleted bool, err error) {
	err = db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		detachSQL, detachArgs, err := r.sb.Update("organizations").
			Set("roster_id", nil).
			Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
			Where(squirrel.Eq{"id": organizationID, "roster_id": rosterID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build detach roster query: %w", err)
		}

		cmdTag, err := tx.Exec(ctx, detachSQL, detachArgs...)
		if err != nil {
			return fmt.Errorf("error detaching roster: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return apperrors.ErrRosterNotFound
		}

		countSQL, countArgs, err := r.sb.Select("COUNT(*)").
			From("organizations").
			Where(squirrel.Eq{"roster_id": rosterID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build roster reference count query: %w", err)
		}

		var references int64
		if err := tx.QueryRow(ctx, countSQL, countArgs...).Scan(&references); err != nil {
			return fmt.Errorf("error counting roster references: %w", err)
		}
		if references > 0 {
			return nil
		}

		deleteSQL, deleteArgs, err := r.sb.Delete("rosters").
			Where(squirrel.Eq{"id": rosterID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete roster query: %w", err)
		}
		if _, err := tx.Exec(ctx, deleteSQL, deleteArgs...); err != nil {
			return fmt.Errorf("error deleting roster: %w", err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrRosterNotFound) {
			logger.Error().Err(err).Int64("organizationID", organizationID).Int64("rosterID", rosterID).Msg("Error removing roster from organization")
		}
		return false, err
	}
	return deleted, nil
}
