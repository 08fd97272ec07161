package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository             *UserRepository
	OrganizationRepository     *OrganizationRepository
	RosterRepository           *RosterRepository
	RosterEntryRepository      *RosterEntryRepository
	AssignmentRepository       *AssignmentRepository
	GroupingRepository         *GroupingRepository
	ParticipationRepository    *ParticipationRepository
	GoogleCredentialRepository *GoogleCredentialRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:             NewUserRepository(db),
		OrganizationRepository:     NewOrganizationRepository(db),
		RosterRepository:           NewRosterRepository(db),
		RosterEntryRepository:      NewRosterEntryRepository(db),
		AssignmentRepository:       NewAssignmentRepository(db),
		GroupingRepository:         NewGroupingRepository(db),
		ParticipationRepository:    NewParticipationRepository(db),
		GoogleCredentialRepository: NewGoogleCredentialRepository(db),
	}
}

// querier is the subset shared by *pgxpool.Pool and pgx.Tx
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func newStatementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// lockRoster takes a row lock on the roster for the rest of tx, serializing
// entry mutations that depend on the roster's current content.
func lockRoster(ctx context.Context, q querier, sb squirrel.StatementBuilderType, rosterID int64) error {
	sql, args, err := sb.Select("id").
		From("rosters").
		Where(squirrel.Eq{"id": rosterID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build lock roster query: %w", err)
	}

	var id int64
	if err := q.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrRosterNotFound
		}
		return fmt.Errorf("error locking roster: %w", err)
	}
	return nil
}

// collectInt64s reads a single bigint column
func collectInt64s(rows pgx.Rows) ([]int64, error) {
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning id row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating id rows: %w", err)
	}
	return ids, nil
}
