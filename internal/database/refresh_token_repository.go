package database

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

// RefreshTokenRepository handles refresh token database operations
type RefreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// hashToken creates a SHA-256 hash of the token for storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Store persists a refresh token, keyed by its hash
func (r *RefreshTokenRepository) Store(accountID uuid.UUID, token, ipAddress, userAgent string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (id, account_id, token_hash, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	var ipVal, uaVal interface{}
	if ipAddress != "" {
		ipVal = ipAddress
	}
	if userAgent != "" {
		uaVal = userAgent
	}

	_, err := r.db.Exec(query, uuid.New(), accountID, hashToken(token), ipVal, uaVal, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// Get retrieves a refresh token by its plaintext value, or nil when unknown
func (r *RefreshTokenRepository) Get(token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, account_id, token_hash, ip_address, user_agent,
			   created_at, expires_at, revoked, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var refreshToken models.RefreshToken
	err := r.db.Get(&refreshToken, query, hashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return &refreshToken, nil
}

// IsUsable reports whether the token exists, is unrevoked and unexpired
func (r *RefreshTokenRepository) IsUsable(token string) (bool, error) {
	refreshToken, err := r.Get(token)
	if err != nil {
		return false, err
	}
	if refreshToken == nil || refreshToken.Revoked {
		return false, nil
	}
	return refreshToken.ExpiresAt.After(time.Now()), nil
}

// Revoke revokes a specific refresh token
func (r *RefreshTokenRepository) Revoke(token string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW()
		WHERE token_hash = $1 AND revoked = FALSE
	`

	result, err := r.db.Exec(query, hashToken(token))
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("token not found or already revoked")
	}
	return nil
}

// RevokeAllForAccount revokes every refresh token an account holds
func (r *RefreshTokenRepository) RevokeAllForAccount(accountID uuid.UUID) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW()
		WHERE account_id = $1 AND revoked = FALSE
	`

	if _, err := r.db.Exec(query, accountID); err != nil {
		return fmt.Errorf("failed to revoke account tokens: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens past their expiry
func (r *RefreshTokenRepository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
