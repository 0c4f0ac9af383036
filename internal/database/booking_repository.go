package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

const bookingColumns = `id, experience_id, tourist_id, booking_date, num_people,
	   total_price, payment_method, payment_status, created_at, updated_at`

// BookingRepository handles database operations for the bookings table.
// It needs *sqlx.DB directly because booking creation runs in a transaction.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateWithReferral creates a booking inside one transaction: the aggregate
// spot decrement, the per-date override increment (when an override exists
// for the booked date), the booking row and, when link is non-nil, the
// referral and commission rows. Everything commits or nothing does, so a
// booking can never exist without its referral bookkeeping.
//
// The availability check and decrement are a single conditional UPDATE; two
// concurrent bookings that would jointly overdraw the spots resolve to one
// success and one InsufficientAvailabilityError.
func (r *BookingRepository) CreateWithReferral(booking *models.Booking, link *models.ReferralLink, commissionRate float64) (*models.Booking, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Atomic check-and-decrement on the aggregate spot count.
	result, err := tx.Exec(`
		UPDATE experiences
		SET available_spots = available_spots - $2, updated_at = NOW()
		WHERE id = $1 AND available_spots >= $2
	`, booking.ExperienceID, booking.NumPeople)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve spots: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var available int
		err := tx.Get(&available, `SELECT available_spots FROM experiences WHERE id = $1`, booking.ExperienceID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "experience", ID: booking.ExperienceID.String()}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read available spots: %w", err)
		}
		return nil, &models.InsufficientAvailabilityError{Available: available}
	}

	// 2. When the booked date carries a capacity override, count the booking
	// against it under the same guard. Dates without an override row are
	// governed by the aggregate alone.
	result, err = tx.Exec(`
		UPDATE availability_overrides
		SET booked_count = booked_count + $3, updated_at = NOW()
		WHERE experience_id = $1 AND date = $2 AND booked_count + $3 <= max_capacity
	`, booking.ExperienceID, booking.BookingDate, booking.NumPeople)
	if err != nil {
		return nil, fmt.Errorf("failed to update date capacity: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var remaining int
		err := tx.Get(&remaining, `
			SELECT GREATEST(max_capacity - booked_count, 0)
			FROM availability_overrides
			WHERE experience_id = $1 AND date = $2
		`, booking.ExperienceID, booking.BookingDate)
		if err == nil {
			return nil, &models.InsufficientAvailabilityError{Available: remaining}
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to read date capacity: %w", err)
		}
	}

	// 3. Insert the booking.
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	err = tx.QueryRowx(`
		INSERT INTO bookings (
			id, experience_id, tourist_id, booking_date,
			num_people, total_price, payment_method, payment_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`,
		booking.ID, booking.ExperienceID, booking.TouristID, booking.BookingDate,
		booking.NumPeople, booking.TotalPrice, booking.PaymentMethod, booking.PaymentStatus,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	// 4. Referral attribution, in the same transaction.
	if link != nil {
		referralID := uuid.New()
		_, err = tx.Exec(`
			INSERT INTO referrals (id, booking_id, referral_link_id)
			VALUES ($1, $2, $3)
		`, referralID, booking.ID, link.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create referral: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO commissions (id, referral_id, amount, status)
			VALUES ($1, $2, $3, 'pending')
		`, uuid.New(), referralID, booking.TotalPrice*commissionRate)
		if err != nil {
			return nil, fmt.Errorf("failed to create commission: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}
	return booking, nil
}

// GetByID retrieves a booking by id
func (r *BookingRepository) GetByID(id uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking := &models.Booking{}
	err := r.db.Get(booking, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "booking", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListByTourist retrieves all bookings placed by a tourist, newest first
func (r *BookingRepository) ListByTourist(touristID uuid.UUID) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tourist_id = $1 ORDER BY created_at DESC`

	var bookings []models.Booking
	if err := r.db.Select(&bookings, query, touristID); err != nil {
		return nil, fmt.Errorf("failed to list bookings by tourist: %w", err)
	}
	return bookings, nil
}

// ListByExperience retrieves all bookings against an experience
func (r *BookingRepository) ListByExperience(experienceID uuid.UUID) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE experience_id = $1 ORDER BY booking_date`

	var bookings []models.Booking
	if err := r.db.Select(&bookings, query, experienceID); err != nil {
		return nil, fmt.Errorf("failed to list bookings by experience: %w", err)
	}
	return bookings, nil
}

// ListByGuide retrieves all bookings against any of a guide's experiences
func (r *BookingRepository) ListByGuide(guideID uuid.UUID) ([]models.Booking, error) {
	query := `
		SELECT b.id, b.experience_id, b.tourist_id, b.booking_date, b.num_people,
			   b.total_price, b.payment_method, b.payment_status, b.created_at, b.updated_at
		FROM bookings b
		JOIN experiences e ON e.id = b.experience_id
		WHERE e.guide_id = $1
		ORDER BY b.booking_date
	`

	var bookings []models.Booking
	if err := r.db.Select(&bookings, query, guideID); err != nil {
		return nil, fmt.Errorf("failed to list bookings by guide: %w", err)
	}
	return bookings, nil
}

// MarkPaymentCompleted transitions a booking's payment status from pending to
// completed. The reverse transition is disallowed by the WHERE guard.
func (r *BookingRepository) MarkPaymentCompleted(id uuid.UUID) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET payment_status = 'completed', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
		RETURNING ` + bookingColumns

	booking := &models.Booking{}
	err := r.db.Get(booking, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetByID(id); getErr != nil {
				return nil, getErr
			}
			return nil, &models.ValidationError{Field: "payment_status", Constraint: "only pending payments can be completed"}
		}
		return nil, fmt.Errorf("failed to mark payment completed: %w", err)
	}
	return booking, nil
}
