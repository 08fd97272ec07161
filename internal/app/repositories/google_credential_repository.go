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

// GoogleCredentialRepository stores per-user Google OAuth tokens
type GoogleCredentialRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewGoogleCredentialRepository creates a new GoogleCredentialRepository
func NewGoogleCredentialRepository(db *pgxpool.Pool) *GoogleCredentialRepository {
	return &GoogleCredentialRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// Get returns the stored credential or ErrGoogleAuthorizationRequired
func (r *GoogleCredentialRepository) Get(ctx context.Context, userID int64) (*models.GoogleCredential, error) {
	sql, args, err := r.sb.Select("user_id", "access_token", "refresh_token", "token_type", "expiry", "updated_at").
		From("google_credentials").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get google credential query: %w", err)
	}

	c := &models.GoogleCredential{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &c.TokenType, &c.Expiry, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrGoogleAuthorizationRequired
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error scanning google credential row")
		return nil, fmt.Errorf("error getting google credential: %w", err)
	}
	return c, nil
}

// Upsert stores the credential, replacing any previous one of the user
func (r *GoogleCredentialRepository) Upsert(ctx context.Context, c *models.GoogleCredential) error {
	sql, args, err := r.sb.Insert("google_credentials").
		Columns("user_id", "access_token", "refresh_token", "token_type", "expiry").
		Values(c.UserID, c.AccessToken, c.RefreshToken, c.TokenType, c.Expiry).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, google_credentials.refresh_token),
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			updated_at = CURRENT_TIMESTAMP
			RETURNING updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert google credential query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("userID", c.UserID).Msg("Error storing google credential")
		return fmt.Errorf("error storing google credential: %w", err)
	}
	return nil
}
