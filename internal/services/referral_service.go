package services

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wundergunder/toadtourist-sub000/internal/authz"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

const (
	referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referralCodeLength   = 8
	codeGenAttempts      = 5
)

// ReferralService manages referral links and commission payouts for hotel
// operators
type ReferralService struct {
	referrals *database.ReferralRepository
	sessions  *SessionService
	logger    *logrus.Logger
}

// NewReferralService creates a new ReferralService
func NewReferralService(referrals *database.ReferralRepository, sessions *SessionService, logger *logrus.Logger) *ReferralService {
	return &ReferralService{
		referrals: referrals,
		sessions:  sessions,
		logger:    logger,
	}
}

// CreateLink creates a referral link with a unique generated code
func (s *ReferralService) CreateLink(caller *models.Account, req *models.CreateReferralLinkRequest) (*models.ReferralLink, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if d := authz.Authorize(caller, authz.ActionManageReferralLink, authz.Target{AccountID: caller.ID}); !d.Allowed {
		return nil, d.Err()
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, err
	}
	return s.referrals.CreateLink(caller.ID, code, req.Name)
}

// generateCode draws random codes until one is unused. Collisions on an
// 8-character code are vanishingly rare, so a handful of attempts suffices.
func (s *ReferralService) generateCode() (string, error) {
	for attempt := 0; attempt < codeGenAttempts; attempt++ {
		buf := make([]byte, referralCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		for i, b := range buf {
			buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
		}
		code := string(buf)

		exists, err := s.referrals.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique referral code after %d attempts", codeGenAttempts)
}

// ToggleActive flips a link's active flag; owner only (or admin)
func (s *ReferralService) ToggleActive(caller *models.Account, linkID uuid.UUID) (*models.ReferralLink, error) {
	link, err := s.referrals.GetLinkByID(linkID)
	if err != nil {
		return nil, err
	}
	if d := authz.Authorize(caller, authz.ActionManageReferralLink, authz.Target{AccountID: link.OperatorID}); !d.Allowed {
		return nil, d.Err()
	}
	return s.referrals.SetActive(linkID, !link.Active)
}

// DeleteLink deletes a link and, explicitly, its referrals and commissions
func (s *ReferralService) DeleteLink(caller *models.Account, linkID uuid.UUID) error {
	link, err := s.referrals.GetLinkByID(linkID)
	if err != nil {
		return err
	}
	if d := authz.Authorize(caller, authz.ActionManageReferralLink, authz.Target{AccountID: link.OperatorID}); !d.Allowed {
		return d.Err()
	}
	return s.referrals.DeleteLinkCascade(linkID)
}

// ListLinks returns an operator's own referral links
func (s *ReferralService) ListLinks(caller *models.Account) ([]models.ReferralLink, error) {
	if d := authz.Authorize(caller, authz.ActionManageReferralLink, authz.Target{AccountID: caller.ID}); !d.Allowed {
		return nil, d.Err()
	}
	return s.referrals.ListLinksByOperator(caller.ID)
}

// ListReferrals returns the referrals attributed to one of the caller's links
func (s *ReferralService) ListReferrals(caller *models.Account, linkID uuid.UUID) ([]models.Referral, error) {
	link, err := s.referrals.GetLinkByID(linkID)
	if err != nil {
		return nil, err
	}
	if d := authz.Authorize(caller, authz.ActionManageReferralLink, authz.Target{AccountID: link.OperatorID}); !d.Allowed {
		return nil, d.Err()
	}
	return s.referrals.ListReferralsByLink(linkID)
}

// ListCommissions returns the caller's commissions across all links
func (s *ReferralService) ListCommissions(caller *models.Account) ([]models.Commission, error) {
	if d := authz.Authorize(caller, authz.ActionManageReferralLink, authz.Target{AccountID: caller.ID}); !d.Allowed {
		return nil, d.Err()
	}
	return s.referrals.ListCommissionsByOperator(caller.ID)
}

// CommissionSummary folds the caller's commission records into totals
func (s *ReferralService) CommissionSummary(caller *models.Account) (*models.CommissionSummary, error) {
	if d := authz.Authorize(caller, authz.ActionManageReferralLink, authz.Target{AccountID: caller.ID}); !d.Allowed {
		return nil, d.Err()
	}
	return s.referrals.SummaryByOperator(caller.ID)
}

// MarkCommissionPaid marks a commission paid; admin only, irreversible
func (s *ReferralService) MarkCommissionPaid(caller *models.Account, commissionID uuid.UUID) (*models.Commission, error) {
	if d := authz.Authorize(caller, authz.ActionMarkCommissionPaid, authz.Target{}); !d.Allowed {
		return nil, d.Err()
	}
	return s.referrals.MarkCommissionPaid(commissionID)
}

// AttachToSession attaches a referral code to the caller's browsing session.
// Unknown or inactive codes are ignored without error so shared links never
// break the browsing flow.
func (s *ReferralService) AttachToSession(ctx context.Context, sessionID, code string) (bool, error) {
	if sessionID == "" || code == "" {
		return false, nil
	}
	if _, err := s.referrals.GetActiveLinkByCode(code); err != nil {
		if models.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.sessions.AttachReferralCode(ctx, sessionID, code); err != nil {
		return false, err
	}
	return true, nil
}
