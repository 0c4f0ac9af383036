package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

func newMockSqlxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ExperienceID:  uuid.New(),
		TouristID:     uuid.New(),
		BookingDate:   time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		NumPeople:     2,
		TotalPrice:    90.0,
		PaymentMethod: models.PaymentMethodCard,
		PaymentStatus: models.PaymentStatusPending,
	}
}

func TestCreateWithReferral(t *testing.T) {
	t.Run("Success without referral", func(t *testing.T) {
		sqlxDB, mock := newMockSqlxDB(t)
		repo := NewBookingRepository(sqlxDB)
		booking := pendingBooking()
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE experiences`).
			WithArgs(booking.ExperienceID, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE availability_overrides`).
			WithArgs(booking.ExperienceID, booking.BookingDate, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WithArgs(sqlmock.AnyArg(), booking.ExperienceID, booking.TouristID, booking.BookingDate,
				booking.NumPeople, booking.TotalPrice, booking.PaymentMethod, booking.PaymentStatus).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit()

		created, err := repo.CreateWithReferral(booking, nil, 0.10)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, now, created.CreatedAt)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success with referral writes commission in same transaction", func(t *testing.T) {
		sqlxDB, mock := newMockSqlxDB(t)
		repo := NewBookingRepository(sqlxDB)
		booking := pendingBooking()
		link := &models.ReferralLink{ID: uuid.New(), OperatorID: uuid.New(), Code: "HOTELAAA", Active: true}
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE experiences`).
			WithArgs(booking.ExperienceID, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE availability_overrides`).
			WithArgs(booking.ExperienceID, booking.BookingDate, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WithArgs(sqlmock.AnyArg(), booking.ExperienceID, booking.TouristID, booking.BookingDate,
				booking.NumPeople, booking.TotalPrice, booking.PaymentMethod, booking.PaymentStatus).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`INSERT INTO referrals`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), link.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO commissions`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), booking.TotalPrice*0.10).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := repo.CreateWithReferral(booking, link, 0.10)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insufficient aggregate availability rolls back", func(t *testing.T) {
		sqlxDB, mock := newMockSqlxDB(t)
		repo := NewBookingRepository(sqlxDB)
		booking := pendingBooking()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE experiences`).
			WithArgs(booking.ExperienceID, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT available_spots FROM experiences`).
			WithArgs(booking.ExperienceID).
			WillReturnRows(sqlmock.NewRows([]string{"available_spots"}).AddRow(1))
		mock.ExpectRollback()

		_, err := repo.CreateWithReferral(booking, nil, 0.10)

		var insufficient *models.InsufficientAvailabilityError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 1, insufficient.Available)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown experience", func(t *testing.T) {
		sqlxDB, mock := newMockSqlxDB(t)
		repo := NewBookingRepository(sqlxDB)
		booking := pendingBooking()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE experiences`).
			WithArgs(booking.ExperienceID, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT available_spots FROM experiences`).
			WithArgs(booking.ExperienceID).
			WillReturnRows(sqlmock.NewRows([]string{"available_spots"}))
		mock.ExpectRollback()

		_, err := repo.CreateWithReferral(booking, nil, 0.10)

		var notFound *models.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "experience", notFound.EntityType)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Date override exhausted rolls back", func(t *testing.T) {
		sqlxDB, mock := newMockSqlxDB(t)
		repo := NewBookingRepository(sqlxDB)
		booking := pendingBooking()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE experiences`).
			WithArgs(booking.ExperienceID, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE availability_overrides`).
			WithArgs(booking.ExperienceID, booking.BookingDate, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT GREATEST`).
			WithArgs(booking.ExperienceID, booking.BookingDate).
			WillReturnRows(sqlmock.NewRows([]string{"greatest"}).AddRow(1))
		mock.ExpectRollback()

		_, err := repo.CreateWithReferral(booking, nil, 0.10)

		var insufficient *models.InsufficientAvailabilityError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 1, insufficient.Available)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No override row books against aggregate alone", func(t *testing.T) {
		sqlxDB, mock := newMockSqlxDB(t)
		repo := NewBookingRepository(sqlxDB)
		booking := pendingBooking()
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE experiences`).
			WithArgs(booking.ExperienceID, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE availability_overrides`).
			WithArgs(booking.ExperienceID, booking.BookingDate, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT GREATEST`).
			WithArgs(booking.ExperienceID, booking.BookingDate).
			WillReturnRows(sqlmock.NewRows([]string{"greatest"}))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WithArgs(sqlmock.AnyArg(), booking.ExperienceID, booking.TouristID, booking.BookingDate,
				booking.NumPeople, booking.TotalPrice, booking.PaymentMethod, booking.PaymentStatus).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit()

		_, err := repo.CreateWithReferral(booking, nil, 0.10)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insert failure rolls back the decrement", func(t *testing.T) {
		sqlxDB, mock := newMockSqlxDB(t)
		repo := NewBookingRepository(sqlxDB)
		booking := pendingBooking()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE experiences`).
			WithArgs(booking.ExperienceID, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE availability_overrides`).
			WithArgs(booking.ExperienceID, booking.BookingDate, booking.NumPeople).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		_, err := repo.CreateWithReferral(booking, nil, 0.10)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create booking")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkPaymentCompletedRepo(t *testing.T) {
	bookingRows := func(b *models.Booking, status models.PaymentStatus) *sqlmock.Rows {
		now := time.Now()
		return sqlmock.NewRows([]string{
			"id", "experience_id", "tourist_id", "booking_date", "num_people",
			"total_price", "payment_method", "payment_status", "created_at", "updated_at",
		}).AddRow(
			b.ID, b.ExperienceID, b.TouristID, b.BookingDate, b.NumPeople,
			b.TotalPrice, string(b.PaymentMethod), string(status), now, now,
		)
	}

	t.Run("Success", func(t *testing.T) {
		sqlxDB, mock := newMockSqlxDB(t)
		repo := NewBookingRepository(sqlxDB)
		booking := pendingBooking()
		booking.ID = uuid.New()

		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(booking.ID).
			WillReturnRows(bookingRows(booking, models.PaymentStatusCompleted))

		updated, err := repo.MarkPaymentCompleted(booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, updated.PaymentStatus)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already completed", func(t *testing.T) {
		sqlxDB, mock := newMockSqlxDB(t)
		repo := NewBookingRepository(sqlxDB)
		booking := pendingBooking()
		booking.ID = uuid.New()

		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(booking.ID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`FROM bookings WHERE id`).
			WithArgs(booking.ID).
			WillReturnRows(bookingRows(booking, models.PaymentStatusCompleted))

		_, err := repo.MarkPaymentCompleted(booking.ID)

		var validation *models.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "payment_status", validation.Field)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown booking", func(t *testing.T) {
		sqlxDB, mock := newMockSqlxDB(t)
		repo := NewBookingRepository(sqlxDB)
		id := uuid.New()

		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`FROM bookings WHERE id`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.MarkPaymentCompleted(id)
		assert.True(t, models.IsNotFound(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListByGuide(t *testing.T) {
	sqlxDB, mock := newMockSqlxDB(t)
	repo := NewBookingRepository(sqlxDB)
	guideID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`FROM bookings b\s+JOIN experiences e`).
		WithArgs(guideID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "experience_id", "tourist_id", "booking_date", "num_people",
			"total_price", "payment_method", "payment_status", "created_at", "updated_at",
		}).AddRow(
			uuid.New(), uuid.New(), uuid.New(), now, 2,
			90.0, "card", "pending", now, now,
		).AddRow(
			uuid.New(), uuid.New(), uuid.New(), now, 1,
			45.0, "cash", "completed", now, now,
		))

	bookings, err := repo.ListByGuide(guideID)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}
