package postgres

import (
	"context"
	"time"

	"trainer-booking/internal/models"
)

func (s *Storage) CreateOtpToken(ctx context.Context, token *models.OtpToken) error {
	const op = "storage.postgres.CreateOtpToken"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO otp_tokens (id, email, token_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID,
		token.Email,
		token.TokenHash,
		token.ExpiresAt,
		token.Used,
		token.CreatedAt,
	)
	if err != nil {
		return storageErr(op, err)
	}

	return nil
}

func (s *Storage) FindLatestValidOtpToken(ctx context.Context, email string, now time.Time) (*models.OtpToken, error) {
	const op = "storage.postgres.FindLatestValidOtpToken"

	var token models.OtpToken
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, token_hash, expires_at, used, created_at
		FROM otp_tokens
		WHERE email = $1 AND used = FALSE AND expires_at > $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		email, now,
	).Scan(
		&token.ID,
		&token.Email,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Used,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, storageErr(op, err)
	}

	return &token, nil
}

// MarkOtpTokenUsed reports false when another request consumed the token
// first.
func (s *Storage) MarkOtpTokenUsed(ctx context.Context, id string) (bool, error) {
	const op = "storage.postgres.MarkOtpTokenUsed"

	res, err := s.db.ExecContext(ctx,
		`UPDATE otp_tokens SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	if err != nil {
		return false, storageErr(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(op, err)
	}

	return n == 1, nil
}
