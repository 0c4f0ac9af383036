package services

import (
	"context"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

func newReferralService(t *testing.T) (*ReferralService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	referrals := database.NewReferralRepository(sqlx.NewDb(db, "sqlmock"))
	return NewReferralService(referrals, nil, logger), mock
}

func testOperator() *models.Account {
	return &models.Account{
		ID:    uuid.New(),
		Email: "operator@example.com",
		Roles: pq.StringArray{"tourist", "hotel_operator"},
	}
}

func testAdmin() *models.Account {
	return &models.Account{
		ID:    uuid.New(),
		Email: "admin@example.com",
		Roles: pq.StringArray{"tourist", "admin"},
	}
}

func linkRow(id, operatorID uuid.UUID, code string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "operator_id", "code", "name", "active", "created_at"}).
		AddRow(id, operatorID, code, "Lobby QR", active, time.Now())
}

func TestCreateLink(t *testing.T) {
	t.Run("Operator gets a generated code", func(t *testing.T) {
		service, mock := newReferralService(t)
		operator := testOperator()
		linkID := uuid.New()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`INSERT INTO referral_links`).
			WithArgs(sqlmock.AnyArg(), operator.ID, sqlmock.AnyArg(), "Lobby QR").
			WillReturnRows(linkRow(linkID, operator.ID, "HOTELAAA", true))

		link, err := service.CreateLink(operator, &models.CreateReferralLinkRequest{Name: "Lobby QR"})
		require.NoError(t, err)
		assert.Equal(t, operator.ID, link.OperatorID)
		assert.True(t, link.Active)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Code collision retries with a fresh draw", func(t *testing.T) {
		service, mock := newReferralService(t)
		operator := testOperator()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`INSERT INTO referral_links`).
			WithArgs(sqlmock.AnyArg(), operator.ID, sqlmock.AnyArg(), "Lobby QR").
			WillReturnRows(linkRow(uuid.New(), operator.ID, "HOTELBBB", true))

		_, err := service.CreateLink(operator, &models.CreateReferralLinkRequest{Name: "Lobby QR"})
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Tourist without operator role is denied", func(t *testing.T) {
		service, _ := newReferralService(t)

		_, err := service.CreateLink(testTourist(), &models.CreateReferralLinkRequest{Name: "Lobby QR"})
		assert.True(t, models.IsUnauthorized(err))
	})
}

func TestGeneratedCodeShape(t *testing.T) {
	service, mock := newReferralService(t)
	operator := testOperator()

	var generated string
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO referral_links`).
		WithArgs(sqlmock.AnyArg(), operator.ID, CodeArgRecorder{&generated}, "Lobby QR").
		WillReturnRows(linkRow(uuid.New(), operator.ID, "HOTELCCC", true))

	_, err := service.CreateLink(operator, &models.CreateReferralLinkRequest{Name: "Lobby QR"})
	require.NoError(t, err)

	assert.Len(t, generated, referralCodeLength)
	for _, r := range generated {
		assert.Contains(t, referralCodeAlphabet, string(r))
	}
	assert.NotContains(t, generated, "0")
	assert.NotContains(t, generated, "O")
	assert.NotContains(t, generated, "1")
	assert.NotContains(t, generated, "I")
}

// CodeArgRecorder captures the code bound into the insert so the test can
// inspect it.
type CodeArgRecorder struct {
	dst *string
}

func (r CodeArgRecorder) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	*r.dst = s
	return true
}

func TestToggleActive(t *testing.T) {
	t.Run("Owner flips active off", func(t *testing.T) {
		service, mock := newReferralService(t)
		operator := testOperator()
		linkID := uuid.New()

		mock.ExpectQuery(`FROM referral_links WHERE id`).
			WithArgs(linkID).
			WillReturnRows(linkRow(linkID, operator.ID, "HOTELAAA", true))
		mock.ExpectQuery(`UPDATE referral_links SET active`).
			WithArgs(linkID, false).
			WillReturnRows(linkRow(linkID, operator.ID, "HOTELAAA", false))

		link, err := service.ToggleActive(operator, linkID)
		require.NoError(t, err)
		assert.False(t, link.Active)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Another operator is denied", func(t *testing.T) {
		service, mock := newReferralService(t)
		linkID := uuid.New()

		mock.ExpectQuery(`FROM referral_links WHERE id`).
			WithArgs(linkID).
			WillReturnRows(linkRow(linkID, uuid.New(), "HOTELAAA", true))

		_, err := service.ToggleActive(testOperator(), linkID)
		assert.True(t, models.IsUnauthorized(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteLink(t *testing.T) {
	service, mock := newReferralService(t)
	operator := testOperator()
	linkID := uuid.New()

	mock.ExpectQuery(`FROM referral_links WHERE id`).
		WithArgs(linkID).
		WillReturnRows(linkRow(linkID, operator.ID, "HOTELAAA", true))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM commissions`).
		WithArgs(linkID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM referrals`).
		WithArgs(linkID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM referral_links`).
		WithArgs(linkID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, service.DeleteLink(operator, linkID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCommissionPaidService(t *testing.T) {
	commissionRows := func(id uuid.UUID, status string, paidAt interface{}) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "referral_id", "amount", "status", "paid_at", "created_at"}).
			AddRow(id, uuid.New(), 9.0, status, paidAt, time.Now())
	}

	t.Run("Admin marks pending commission paid", func(t *testing.T) {
		service, mock := newReferralService(t)
		commissionID := uuid.New()

		mock.ExpectQuery(`UPDATE commissions`).
			WithArgs(commissionID).
			WillReturnRows(commissionRows(commissionID, "paid", time.Now()))

		commission, err := service.MarkCommissionPaid(testAdmin(), commissionID)
		require.NoError(t, err)
		assert.Equal(t, models.CommissionStatusPaid, commission.Status)
		assert.True(t, commission.PaidAt.Valid)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Paying twice is rejected", func(t *testing.T) {
		service, mock := newReferralService(t)
		commissionID := uuid.New()

		mock.ExpectQuery(`UPDATE commissions`).
			WithArgs(commissionID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`FROM commissions WHERE id`).
			WithArgs(commissionID).
			WillReturnRows(commissionRows(commissionID, "paid", time.Now()))

		_, err := service.MarkCommissionPaid(testAdmin(), commissionID)

		var validation *models.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "status", validation.Field)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Operator cannot pay commissions", func(t *testing.T) {
		service, _ := newReferralService(t)

		_, err := service.MarkCommissionPaid(testOperator(), uuid.New())
		assert.True(t, models.IsUnauthorized(err))
	})
}

func TestCommissionSummaryService(t *testing.T) {
	service, mock := newReferralService(t)
	operator := testOperator()

	mock.ExpectQuery(`COALESCE\(SUM`).
		WithArgs(operator.ID).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "paid"}).AddRow(27.0, 18.0, 9.0))

	summary, err := service.CommissionSummary(operator)
	require.NoError(t, err)
	assert.InDelta(t, summary.Pending+summary.Paid, summary.Total, 0.001)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachToSession(t *testing.T) {
	t.Run("Blank session or code is a no-op", func(t *testing.T) {
		service, _ := newReferralService(t)

		attached, err := service.AttachToSession(context.Background(), "", "HOTELAAA")
		require.NoError(t, err)
		assert.False(t, attached)

		attached, err = service.AttachToSession(context.Background(), "sess-1", "")
		require.NoError(t, err)
		assert.False(t, attached)
	})

	t.Run("Unknown code is ignored without error", func(t *testing.T) {
		service, mock := newReferralService(t)

		mock.ExpectQuery(`FROM referral_links WHERE code`).
			WithArgs("NOSUCHCD").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		attached, err := service.AttachToSession(context.Background(), "sess-1", "NOSUCHCD")
		require.NoError(t, err)
		assert.False(t, attached)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReferralCodeAlphabetExcludesAmbiguousGlyphs(t *testing.T) {
	for _, glyph := range []string{"0", "O", "1", "I"} {
		assert.False(t, strings.Contains(referralCodeAlphabet, glyph), "alphabet should not contain %q", glyph)
	}
}
