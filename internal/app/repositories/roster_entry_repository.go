package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/db"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/dberrors"
	"github.com/yigit/classroom/internal/pkg/logger"
)

const rosterUserConstraint = "uq_roster_entries_roster_user"

var rosterEntryColumns = []string{
	"re.id", "re.roster_id", "re.user_id", "re.identifier", "re.google_user_id", "re.created_at", "re.updated_at",
	"u.id", "u.uid", "u.login", "u.name", "u.avatar_url", "u.created_at", "u.updated_at",
}

// RosterEntryRepository handles roster entry database operations
type RosterEntryRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRosterEntryRepository creates a new RosterEntryRepository
func NewRosterEntryRepository(db *pgxpool.Pool) *RosterEntryRepository {
	return &RosterEntryRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// scanRosterEntry reads an entry joined with its (optional) user
func scanRosterEntry(row pgx.Row) (*models.RosterEntry, error) {
	entry := &models.RosterEntry{}
	var (
		userID                   *int64
		uid                      *int64
		login                    *string
		name, avatarURL          *string
		userCreated, userUpdated *time.Time
	)
	err := row.Scan(
		&entry.ID, &entry.RosterID, &entry.UserID, &entry.Identifier, &entry.GoogleUserID, &entry.CreatedAt, &entry.UpdatedAt,
		&userID, &uid, &login, &name, &avatarURL, &userCreated, &userUpdated,
	)
	if err != nil {
		return nil, err
	}

	if userID != nil {
		entry.User = &models.User{
			ID:        *userID,
			UID:       *uid,
			Login:     *login,
			Name:      name,
			AvatarURL: avatarURL,
		}
		if userCreated != nil {
			entry.User.CreatedAt = *userCreated
		}
		if userUpdated != nil {
			entry.User.UpdatedAt = *userUpdated
		}
	}
	return entry, nil
}

func (r *RosterEntryRepository) selectEntries() squirrel.SelectBuilder {
	return r.sb.Select(rosterEntryColumns...).
		From("roster_entries re").
		LeftJoin("users u ON u.id = re.user_id")
}

func (r *RosterEntryRepository) queryEntries(ctx context.Context, q squirrel.SelectBuilder) ([]*models.RosterEntry, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build roster entries query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying roster entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.RosterEntry{}
	for rows.Next() {
		entry, err := scanRosterEntry(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning roster entry row")
			return nil, fmt.Errorf("error scanning roster entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster entries: %w", err)
	}
	return entries, nil
}

// ListByRoster returns one page of entries ordered by identifier and the total
// number of entries on the roster.
func (r *RosterEntryRepository) ListByRoster(ctx context.Context, rosterID int64, offset, limit int) ([]*models.RosterEntry, int64, error) {
	countSQL, countArgs, err := r.sb.Select("COUNT(*)").
		From("roster_entries").
		Where(squirrel.Eq{"roster_id": rosterID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count roster entries query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Int64("rosterID", rosterID).Msg("Error counting roster entries")
		return nil, 0, fmt.Errorf("error counting roster entries: %w", err)
	}

	entries, err := r.queryEntries(ctx, r.selectEntries().
		Where(squirrel.Eq{"re.roster_id": rosterID}).
		OrderBy("re.identifier ASC", "re.id ASC").
		Offset(uint64(offset)).
		Limit(uint64(limit)))
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListAllByRoster returns every entry of the roster ordered by identifier
func (r *RosterEntryRepository) ListAllByRoster(ctx context.Context, rosterID int64) ([]*models.RosterEntry, error) {
	return r.queryEntries(ctx, r.selectEntries().
		Where(squirrel.Eq{"re.roster_id": rosterID}).
		OrderBy("re.identifier ASC", "re.id ASC"))
}

// GetByID retrieves an entry of the given roster
func (r *RosterEntryRepository) GetByID(ctx context.Context, rosterID, entryID int64) (*models.RosterEntry, error) {
	sql, args, err := r.selectEntries().
		Where(squirrel.Eq{"re.id": entryID, "re.roster_id": rosterID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get roster entry query: %w", err)
	}

	entry, err := scanRosterEntry(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRosterEntryNotFound
		}
		logger.Error().Err(err).Int64("entryID", entryID).Msg("Error scanning roster entry row")
		return nil, fmt.Errorf("error getting roster entry: %w", err)
	}
	return entry, nil
}

// LinkedUserIDs returns the users linked to entries of the roster
func (r *RosterEntryRepository) LinkedUserIDs(ctx context.Context, rosterID int64) ([]int64, error) {
	sql, args, err := r.sb.Select("DISTINCT user_id").
		From("roster_entries").
		Where(squirrel.Eq{"roster_id": rosterID}).
		Where(squirrel.NotEq{"user_id": nil}).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build linked users query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("rosterID", rosterID).Msg("Error querying linked users")
		return nil, fmt.Errorf("error querying linked users: %w", err)
	}
	return collectInt64s(rows)
}

// CreateEntries adds entries to the roster, skipping identifiers the roster
// already holds. It returns the entries actually inserted.
func (r *RosterEntryRepository) CreateEntries(ctx context.Context, rosterID int64, entries []*models.RosterEntry) ([]*models.RosterEntry, error) {
	var created []*models.RosterEntry
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockRoster(ctx, tx, r.sb, rosterID); err != nil {
			return err
		}

		sql, args, err := r.sb.Select("identifier").
			From("roster_entries").
			Where(squirrel.Eq{"roster_id": rosterID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build existing identifiers query: %w", err)
		}

		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("error querying existing identifiers: %w", err)
		}
		existing := make(map[string]struct{})
		for rows.Next() {
			var identifier string
			if err := rows.Scan(&identifier); err != nil {
				rows.Close()
				return fmt.Errorf("error scanning identifier: %w", err)
			}
			existing[identifier] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating identifiers: %w", err)
		}

		fresh := make([]*models.RosterEntry, 0, len(entries))
		for _, entry := range entries {
			if _, ok := existing[entry.Identifier]; ok {
				continue
			}
			existing[entry.Identifier] = struct{}{}
			entry.RosterID = rosterID
			fresh = append(fresh, entry)
		}

		if err := insertEntries(ctx, tx, r.sb, fresh); err != nil {
			return err
		}
		created = fresh
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrRosterNotFound) {
			logger.Error().Err(err).Int64("rosterID", rosterID).Msg("Error creating roster entries")
		}
		return nil, err
	}
	return created, nil
}

// LinkGuard runs while the roster row is locked; a non-nil error aborts the link.
type LinkGuard func(ctx context.Context) error

// Link points the entry at userID. The roster row is locked before guard runs,
// and every link or unlink takes the same lock, so guard observes the linked set
// the update applies to. The partial unique index backs this up.
func (r *RosterEntryRepository) Link(ctx context.Context, rosterID, entryID, userID int64, guard LinkGuard) error {
	return r.setUser(ctx, rosterID, entryID, &userID, guard)
}

// Unlink clears the entry's user
func (r *RosterEntryRepository) Unlink(ctx context.Context, rosterID, entryID int64) error {
	return r.setUser(ctx, rosterID, entryID, nil, nil)
}

func (r *RosterEntryRepository) setUser(ctx context.Context, rosterID, entryID int64, userID *int64, guard LinkGuard) error {
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockRoster(ctx, tx, r.sb, rosterID); err != nil {
			return err
		}
		if guard != nil {
			if err := guard(ctx); err != nil {
				return err
			}
		}

		sql, args, err := r.sb.Update("roster_entries").
			Set("user_id", userID).
			Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
			Where(squirrel.Eq{"id": entryID, "roster_id": rosterID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build update roster entry query: %w", err)
		}

		cmdTag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if cmdTag.RowsAffected() == 0 {
			return apperrors.ErrRosterEntryNotFound
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case dberrors.IsDuplicateConstraintError(err, rosterUserConstraint):
		return apperrors.ErrUserAlreadyLinked
	case dberrors.IsForeignKeyViolation(err):
		return apperrors.ErrUserNotFound
	case apperrors.Is(err, apperrors.ErrRosterNotFound, apperrors.ErrRosterEntryNotFound, apperrors.ErrUserNotUnlinked):
		return err
	default:
		logger.Error().Err(err).Int64("rosterID", rosterID).Int64("entryID", entryID).Msg("Error updating roster entry link")
		return fmt.Errorf("error updating roster entry: %w", err)
	}
}

// DeleteGuarded removes the entry unless it is the last one on the roster:
// a roster of two may shrink to one, never to zero. Counting and deleting
// happen under the roster lock.
func (r *RosterEntryRepository) DeleteGuarded(ctx context.Context, rosterID, entryID int64) error {
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockRoster(ctx, tx, r.sb, rosterID); err != nil {
			return err
		}

		countSQL, countArgs, err := r.sb.Select("COUNT(*)").
			From("roster_entries").
			Where(squirrel.Eq{"roster_id": rosterID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build count roster entries query: %w", err)
		}

		var count int64
		if err := tx.QueryRow(ctx, countSQL, countArgs...).Scan(&count); err != nil {
			return fmt.Errorf("error counting roster entries: %w", err)
		}
		if count <= 1 {
			return apperrors.ErrLastRosterEntry
		}

		deleteSQL, deleteArgs, err := r.sb.Delete("roster_entries").
			Where(squirrel.Eq{"id": entryID, "roster_id": rosterID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete roster entry query: %w", err)
		}

		cmdTag, err := tx.Exec(ctx, deleteSQL, deleteArgs...)
		if err != nil {
			return fmt.Errorf("error deleting roster entry: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return apperrors.ErrRosterEntryNotFound
		}
		return nil
	})
	if err != nil && !apperrors.Is(err, apperrors.ErrRosterNotFound, apperrors.ErrRosterEntryNotFound, apperrors.ErrLastRosterEntry) {
		logger.Error().Err(err).Int64("rosterID", rosterID).Int64("entryID", entryID).Msg("Error deleting roster entry")
	}
	return err
}

// entryInsertBatchSize keeps one insert well below the 65535 bind parameter
// limit of Postgres (four parameters per entry).
var entryInsertBatchSize = 1000

// entryKey identifies an inserted row by the values written to it
func entryKey(identifier string, googleUserID *string) string {
	if googleUserID == nil {
		return identifier + "\x00"
	}
	return identifier + "\x00" + *googleUserID
}

// insertEntries writes entries in batched multi-row inserts on q and fills
// their ids. Callers pass a transaction so a failed batch leaves nothing behind.
func insertEntries(ctx context.Context, q querier, sb squirrel.StatementBuilderType, entries []*models.RosterEntry) error {
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
	}

	for start := 0; start < len(entries); start += entryInsertBatchSize {
		end := min(start+entryInsertBatchSize, len(entries))
		if err := insertEntryBatch(ctx, q, sb, entries[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func insertEntryBatch(ctx context.Context, q querier, sb squirrel.StatementBuilderType, batch []*models.RosterEntry) error {
	insert := sb.Insert("roster_entries").
		Columns("roster_id", "user_id", "identifier", "google_user_id")

	// RETURNING order is unspecified, rows are matched back by their values
	pending := make(map[string][]*models.RosterEntry, len(batch))
	for _, entry := range batch {
		insert = insert.Values(entry.RosterID, entry.UserID, entry.Identifier, entry.GoogleUserID)
		key := entryKey(entry.Identifier, entry.GoogleUserID)
		pending[key] = append(pending[key], entry)
	}

	sql, args, err := insert.Suffix("RETURNING id, identifier, google_user_id, created_at, updated_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert roster entries query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error inserting roster entries: %w", err)
	}
	defer rows.Close()

	matched := 0
	for rows.Next() {
		var (
			id                   int64
			identifier           string
			googleUserID         *string
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&id, &identifier, &googleUserID, &createdAt, &updatedAt); err != nil {
			return fmt.Errorf("error scanning inserted roster entry: %w", err)
		}

		key := entryKey(identifier, googleUserID)
		queue := pending[key]
		if len(queue) == 0 {
			return fmt.Errorf("inserted roster entry %d does not match the batch", id)
		}
		entry := queue[0]
		pending[key] = queue[1:]

		entry.ID, entry.CreatedAt, entry.UpdatedAt = id, createdAt, updatedAt
		matched++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error inserting roster entries: %w", err)
	}
	if matched != len(batch) {
		return fmt.Errorf("inserted %d of %d roster entries", matched, len(batch))
	}
	return nil
}
