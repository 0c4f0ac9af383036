package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionService keeps short-lived per-session state in redis: the referral
// code attached to a browsing session, and login attempt counters.
type SessionService struct {
	client      *redis.Client
	referralTTL time.Duration
}

// NewSessionService creates a new SessionService
func NewSessionService(client *redis.Client, referralTTL time.Duration) *SessionService {
	return &SessionService{client: client, referralTTL: referralTTL}
}

func referralKey(sessionID string) string {
	return "referral_session:" + sessionID
}

func loginAttemptsKey(email string) string {
	return "login_attempts:" + email
}

// AttachReferralCode attaches a referral code to a browsing session
func (s *SessionService) AttachReferralCode(ctx context.Context, sessionID, code string) error {
	if err := s.client.Set(ctx, referralKey(sessionID), code, s.referralTTL).Err(); err != nil {
		return fmt.Errorf("failed to attach referral code: %w", err)
	}
	return nil
}

// ReferralCode returns the referral code attached to a session, or empty
// string when none is attached
func (s *SessionService) ReferralCode(ctx context.Context, sessionID string) (string, error) {
	code, err := s.client.Get(ctx, referralKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read referral code: %w", err)
	}
	return code, nil
}

// ClearReferralCode detaches any referral code from a session
func (s *SessionService) ClearReferralCode(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, referralKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear referral code: %w", err)
	}
	return nil
}

// RegisterLoginAttempt increments the login attempt counter for an email and
// returns the count inside the current window
func (s *SessionService) RegisterLoginAttempt(ctx context.Context, email string, window time.Duration) (int64, error) {
	key := loginAttemptsKey(email)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count login attempt: %w", err)
	}
	if count == 1 {
		s.client.Expire(ctx, key, window)
	}
	return count, nil
}

// ResetLoginAttempts clears the attempt counter after a successful login
func (s *SessionService) ResetLoginAttempts(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, loginAttemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}
