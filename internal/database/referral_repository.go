package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

const referralLinkColumns = `id, operator_id, code, name, active, created_at`

// ReferralRepository handles database operations for referral links,
// referrals and commissions. It needs *sqlx.DB directly because link
// deletion cascades in a transaction.
type ReferralRepository struct {
	db *sqlx.DB
}

// NewReferralRepository creates a new ReferralRepository
func NewReferralRepository(db *sqlx.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// CreateLink creates a referral link with the given code
func (r *ReferralRepository) CreateLink(operatorID uuid.UUID, code, name string) (*models.ReferralLink, error) {
	query := `
		INSERT INTO referral_links (id, operator_id, code, name, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING ` + referralLinkColumns

	link := &models.ReferralLink{}
	err := r.db.Get(link, query, uuid.New(), operatorID, code, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create referral link: %w", err)
	}
	return link, nil
}

// CodeExists reports whether any link already uses the code
func (r *ReferralRepository) CodeExists(code string) (bool, error) {
	var exists bool
	err := r.db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM referral_links WHERE code = $1)`, code)
	if err != nil {
		return false, fmt.Errorf("failed to check referral code: %w", err)
	}
	return exists, nil
}

// GetLinkByID retrieves a referral link by id
func (r *ReferralRepository) GetLinkByID(id uuid.UUID) (*models.ReferralLink, error) {
	query := `SELECT ` + referralLinkColumns + ` FROM referral_links WHERE id = $1`

	link := &models.ReferralLink{}
	err := r.db.Get(link, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "referral_link", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}
	return link, nil
}

// GetActiveLinkByCode resolves a referral code to its active link. Unknown or
// inactive codes return NotFoundError; callers in the booking flow treat that
// as "no attribution", never as a failure.
func (r *ReferralRepository) GetActiveLinkByCode(code string) (*models.ReferralLink, error) {
	query := `SELECT ` + referralLinkColumns + ` FROM referral_links WHERE code = $1 AND active`

	link := &models.ReferralLink{}
	err := r.db.Get(link, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "referral_link", ID: code}
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}
	return link, nil
}

// ListLinksByOperator retrieves all of an operator's links, newest first
func (r *ReferralRepository) ListLinksByOperator(operatorID uuid.UUID) ([]models.ReferralLink, error) {
	query := `SELECT ` + referralLinkColumns + ` FROM referral_links WHERE operator_id = $1 ORDER BY created_at DESC`

	var links []models.ReferralLink
	if err := r.db.Select(&links, query, operatorID); err != nil {
		return nil, fmt.Errorf("failed to list referral links: %w", err)
	}
	return links, nil
}

// SetActive flips a link's active flag
func (r *ReferralRepository) SetActive(id uuid.UUID, active bool) (*models.ReferralLink, error) {
	query := `UPDATE referral_links SET active = $2 WHERE id = $1 RETURNING ` + referralLinkColumns

	link := &models.ReferralLink{}
	err := r.db.Get(link, query, id, active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "referral_link", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to update referral link: %w", err)
	}
	return link, nil
}

// DeleteLinkCascade deletes a link together with its referrals and their
// commissions in one transaction. The cascade is explicit, not left to
// foreign-key side effects.
func (r *ReferralRepository) DeleteLinkCascade(id uuid.UUID) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM commissions
		WHERE referral_id IN (SELECT id FROM referrals WHERE referral_link_id = $1)
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete commissions: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM referrals WHERE referral_link_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete referrals: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM referral_links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete referral link: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{EntityType: "referral_link", ID: id.String()}
	}

	return tx.Commit()
}

// ListReferralsByLink retrieves all referrals attributed to a link
func (r *ReferralRepository) ListReferralsByLink(linkID uuid.UUID) ([]models.Referral, error) {
	query := `
		SELECT id, booking_id, referral_link_id, created_at
		FROM referrals
		WHERE referral_link_id = $1
		ORDER BY created_at DESC
	`

	var referrals []models.Referral
	if err := r.db.Select(&referrals, query, linkID); err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	return referrals, nil
}

// GetCommissionByID retrieves a commission by id
func (r *ReferralRepository) GetCommissionByID(id uuid.UUID) (*models.Commission, error) {
	query := `SELECT id, referral_id, amount, status, paid_at, created_at FROM commissions WHERE id = $1`

	commission := &models.Commission{}
	err := r.db.Get(commission, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "commission", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}
	return commission, nil
}

// ListCommissionsByOperator retrieves all commissions earned through any of
// an operator's links, newest first
func (r *ReferralRepository) ListCommissionsByOperator(operatorID uuid.UUID) ([]models.Commission, error) {
	query := `
		SELECT c.id, c.referral_id, c.amount, c.status, c.paid_at, c.created_at
		FROM commissions c
		JOIN referrals rf ON rf.id = c.referral_id
		JOIN referral_links rl ON rl.id = rf.referral_link_id
		WHERE rl.operator_id = $1
		ORDER BY c.created_at DESC
	`

	var commissions []models.Commission
	if err := r.db.Select(&commissions, query, operatorID); err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	return commissions, nil
}

// SummaryByOperator folds an operator's commission rows into totals. No
// denormalized totals are stored anywhere, so the fold cannot drift.
func (r *ReferralRepository) SummaryByOperator(operatorID uuid.UUID) (*models.CommissionSummary, error) {
	query := `
		SELECT COALESCE(SUM(c.amount), 0) AS total,
			   COALESCE(SUM(c.amount) FILTER (WHERE c.status = 'pending'), 0) AS pending,
			   COALESCE(SUM(c.amount) FILTER (WHERE c.status = 'paid'), 0) AS paid
		FROM commissions c
		JOIN referrals rf ON rf.id = c.referral_id
		JOIN referral_links rl ON rl.id = rf.referral_link_id
		WHERE rl.operator_id = $1
	`

	summary := &models.CommissionSummary{}
	if err := r.db.Get(summary, query, operatorID); err != nil {
		return nil, fmt.Errorf("failed to summarize commissions: %w", err)
	}
	return summary, nil
}

// MarkCommissionPaid transitions a commission from pending to paid and stamps
// paid_at. The transition is irreversible.
func (r *ReferralRepository) MarkCommissionPaid(id uuid.UUID) (*models.Commission, error) {
	query := `
		UPDATE commissions
		SET status = 'paid', paid_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, referral_id, amount, status, paid_at, created_at
	`

	commission := &models.Commission{}
	err := r.db.Get(commission, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetCommissionByID(id); getErr != nil {
				return nil, getErr
			}
			return nil, &models.ValidationError{Field: "status", Constraint: "only pending commissions can be paid"}
		}
		return nil, fmt.Errorf("failed to mark commission paid: %w", err)
	}
	return commission, nil
}

// OperatorIDForCommission resolves the operator owning the link a commission
// was earned through
func (r *ReferralRepository) OperatorIDForCommission(id uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT rl.operator_id
		FROM commissions c
		JOIN referrals rf ON rf.id = c.referral_id
		JOIN referral_links rl ON rl.id = rf.referral_link_id
		WHERE c.id = $1
	`

	var operatorID uuid.UUID
	err := r.db.Get(&operatorID, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, &models.NotFoundError{EntityType: "commission", ID: id.String()}
		}
		return uuid.Nil, fmt.Errorf("failed to resolve commission operator: %w", err)
	}
	return operatorID, nil
}
