package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"trainer-booking/api"
	"trainer-booking/internal/models"
	"trainer-booking/internal/notify"
	"trainer-booking/pkg/response"
	"trainer-booking/pkg/sl"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Admin access

// RequestAccess issues a one-time token for the configured administrator and
// returns it in plaintext. Only the bcrypt hash is stored.
func (s *Service) RequestAccess(ctx context.Context, email string) (string, error) {
	const op = "service.RequestAccess"

	email, err := s.normalizeEmail("email", email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !s.isAdmin(email) {
		return "", fmt.Errorf("%s: %w", op, response.ErrUnauthorized)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "otp:"+email)
		if err != nil {
			// fail open: the limiter only caps issuance volume
			s.log.Warn("otp rate limiter unavailable", sl.Err(err))
		} else if !allowed {
			return "", fmt.Errorf("%s: %w", op, response.ErrRateLimited)
		}
	}

	token, err := s.newToken()
	if err != nil {
		return "", fmt.Errorf("%s: generate token: %w", op, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("%s: hash token: %w", op, err)
	}

	now := s.now().UTC()
	otp := &models.OtpToken{
		ID:        uuid.NewString(),
		Email:     email,
		TokenHash: string(hash),
		ExpiresAt: now.Add(s.cfg.OTPTTL),
		Used:      false,
		CreatedAt: now,
	}

	if err := s.store.CreateOtpToken(ctx, otp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("access token issued", slog.String("otp_id", otp.ID), slog.Time("expires_at", otp.ExpiresAt))

	return token, nil
}

// SendAccessLink issues a token and mails the login link to the admin.
func (s *Service) SendAccessLink(ctx context.Context, email string) error {
	const op = "service.SendAccessLink"

	token, err := s.RequestAccess(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	email = strings.ToLower(strings.TrimSpace(email))

	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	link := s.cfg.AppURL + "/admin/verify?" + q.Encode()

	msg, err := notify.AccessLink(email, link, s.cfg.OTPTTL)
	s.send(ctx, msg, err)

	return nil
}

// VerifyAccess consumes the newest unused, unexpired token for email. It
// reports true at most once per token and never says why it failed.
func (s *Service) VerifyAccess(ctx context.Context, email, token string) (bool, error) {
	const op = "service.VerifyAccess"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || token == "" {
		return false, nil
	}

	otp, err := s.store.FindLatestValidOtpToken(ctx, email, s.now().UTC())
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if !s.now().UTC().Before(otp.ExpiresAt) || otp.Used {
		return false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(otp.TokenHash), []byte(token)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		s.log.Warn("stored otp hash is unreadable", slog.String("otp_id", otp.ID), sl.Err(err))
		return false, nil
	}

	// the conditional update loses to a concurrent verification of the same row
	consumed, err := s.store.MarkOtpTokenUsed(ctx, otp.ID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return consumed, nil
}

// Login exchanges a valid access token for an admin session credential.
func (s *Service) Login(ctx context.Context, email, token string) (*api.SessionResponse, error) {
	const op = "service.Login"

	ok, err := s.VerifyAccess(ctx, email, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !ok || !s.isAdmin(email) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrUnauthorized)
	}

	raw, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("%s: generate session: %w", op, err)
	}

	session := &models.Session{
		Token:     raw,
		Email:     email,
		ExpiresAt: s.now().UTC().Add(s.cfg.SessionTTL),
	}

	if err := s.sessions.Create(ctx, session, s.cfg.SessionTTL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("admin session issued", slog.Time("expires_at", session.ExpiresAt))

	return &api.SessionResponse{
		Token:     session.Token,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Authenticate resolves a session credential to the admin email.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	const op = "service.Authenticate"

	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%s: %w", op, response.ErrUnauthorized)
	}

	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%s: %w", op, response.ErrUnauthorized)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !s.now().UTC().Before(session.ExpiresAt) || !s.isAdmin(session.Email) {
		return "", fmt.Errorf("%s: %w", op, response.ErrUnauthorized)
	}

	return session.Email, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	const op = "service.Logout"

	if err := s.sessions.Delete(ctx, strings.TrimSpace(token)); err != nil && !isNotFound(err) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
