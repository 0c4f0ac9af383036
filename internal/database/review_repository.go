package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

const reviewColumns = `id, booking_id, tourist_id, experience_id, rating, comment, created_at`

// ReviewRepository handles database operations for the reviews table
type ReviewRepository struct {
	db DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create creates a review. The unique index on booking_id enforces one
// review per booking.
func (r *ReviewRepository) Create(review *models.Review) (*models.Review, error) {
	query := `
		INSERT INTO reviews (id, booking_id, tourist_id, experience_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	err := r.db.QueryRow(query,
		review.ID, review.BookingID, review.TouristID,
		review.ExperienceID, review.Rating, review.Comment,
	).Scan(&review.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, &models.ValidationError{Field: "booking_id", Constraint: "booking has already been reviewed"}
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

// GetByBooking retrieves the review for a booking, if one exists
func (r *ReviewRepository) GetByBooking(bookingID uuid.UUID) (*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE booking_id = $1`

	review := &models.Review{}
	err := r.db.Get(review, query, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "review", ID: bookingID.String()}
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// ListByExperience retrieves all reviews for an experience, newest first
func (r *ReviewRepository) ListByExperience(experienceID uuid.UUID) ([]models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE experience_id = $1 ORDER BY created_at DESC`

	var reviews []models.Review
	if err := r.db.Select(&reviews, query, experienceID); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// AverageRating computes the mean rating for an experience, zero when unreviewed
func (r *ReviewRepository) AverageRating(experienceID uuid.UUID) (float64, error) {
	var avg float64
	err := r.db.Get(&avg, `SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE experience_id = $1`, experienceID)
	if err != nil {
		return 0, fmt.Errorf("failed to compute average rating: %w", err)
	}
	return avg, nil
}
