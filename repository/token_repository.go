// file: repository/token_repository.go

package repository

import (
	"context"
	"database/sql"
	"errors"
	"pharmacy-api/common"
	"pharmacy-api/logger"
	"pharmacy-api/model"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ITokenRepository defines the contract for the auth token ledger.
type ITokenRepository interface {
	Create(ctx context.Context, token *model.AuthToken) error
	FindActive(ctx context.Context, token string, kind model.TokenKind) (*model.AuthToken, error)
	Consume(ctx context.Context, id int) error
	Revoke(ctx context.Context, token string, kind model.TokenKind) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenRepository implements ITokenRepository over Postgres.
type TokenRepository struct {
	DB *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

// Create inserts a new ledger entry. A duplicate token string yields
// common.ErrDuplicateToken; with real token entropy this should never fire,
// but it is handled rather than assumed impossible.
func (r *TokenRepository) Create(ctx context.Context, token *model.AuthToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"kind":       token.Kind,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new auth token")

	query := `INSERT INTO auth_tokens (user_id, token, kind, expires_at) VALUES ($1, $2, $3, $4) RETURNING id, used, created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, token.UserID, token.Token, token.Kind, token.ExpiresAt).
		Scan(&token.ID, &token.Used, &token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			log.Warn("Duplicate token string on insert")
			return common.ErrDuplicateToken
		}
		log.WithError(err).Error("Failed to execute create auth token query")
		return err
	}
	return nil
}

// FindActive returns the entry for the given token string only while it is
// unused and unexpired. Expired-but-unused entries are reported as not found
// regardless of whether the sweeper has purged them yet.
func (r *TokenRepository) FindActive(ctx context.Context, tokenStr string, kind model.TokenKind) (*model.AuthToken, error) {
	log := logger.Log.WithField("kind", kind)
	log.Info("Executing query to find active auth token")

	token := &model.AuthToken{}
	query := `SELECT id, user_id, token, kind, expires_at, used, created_at, updated_at
	          FROM auth_tokens
	          WHERE token = $1 AND kind = $2 AND used = FALSE AND expires_at > NOW()`
	err := r.DB.QueryRowContext(ctx, query, tokenStr, kind).Scan(
		&token.ID, &token.UserID, &token.Token, &token.Kind,
		&token.ExpiresAt, &token.Used, &token.CreatedAt, &token.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrTokenNotFound
		}
		log.WithError(err).Error("Failed to execute find active auth token query")
		return nil, err
	}
	return token, nil
}

// Consume flips the used flag with a single conditional update. When two
// requests race on the same entry only one update matches used = FALSE; the
// loser gets common.ErrTokenUsed and must not be granted new tokens.
func (r *TokenRepository) Consume(ctx context.Context, id int) error {
	log := logger.Log.WithField("token_id", id)
	log.Info("Executing query to consume auth token")

	query := `UPDATE auth_tokens SET used = TRUE, updated_at = NOW() WHERE id = $1 AND used = FALSE`
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute consume auth token query")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		log.WithError(err).Error("Failed to read rows affected for consume")
		return err
	}
	if affected == 0 {
		log.Warn("Auth token was already consumed")
		return common.ErrTokenUsed
	}
	return nil
}

// Revoke marks a token as used regardless of its current state. Revoking an
// already-used or unknown token is a no-op, not an error.
func (r *TokenRepository) Revoke(ctx context.Context, tokenStr string, kind model.TokenKind) error {
	log := logger.Log.WithField("kind", kind)
	log.Info("Executing query to revoke auth token")

	query := `UPDATE auth_tokens SET used = TRUE, updated_at = NOW() WHERE token = $1 AND kind = $2`
	_, err := r.DB.ExecContext(ctx, query, tokenStr, kind)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke auth token query")
		return err
	}
	return nil
}

// DeleteExpired purges entries past their expiry. Validity never depends on
// this running; FindActive already treats expired entries as gone.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE expires_at <= NOW()`
	res, err := r.DB.ExecContext(ctx, query)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute delete expired tokens query")
		return 0, err
	}
	return res.RowsAffected()
}
