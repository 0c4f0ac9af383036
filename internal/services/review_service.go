package services

import (
	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/authz"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

// ReviewService handles experience reviews, one per booking
type ReviewService struct {
	reviews  *database.ReviewRepository
	bookings BookingLedger
}

// NewReviewService creates a new ReviewService
func NewReviewService(reviews *database.ReviewRepository, bookings BookingLedger) *ReviewService {
	return &ReviewService{reviews: reviews, bookings: bookings}
}

// Create creates a review for one of the caller's own bookings
func (s *ReviewService) Create(caller *models.Account, req *models.CreateReviewRequest) (*models.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	bookingID, _ := uuid.Parse(req.BookingID)
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.TouristID != caller.ID {
		return nil, &models.UnauthorizedError{Reason: "only the booking's tourist may review it"}
	}
	if d := authz.Authorize(caller, authz.ActionCreateReview, authz.Target{AccountID: caller.ID}); !d.Allowed {
		return nil, d.Err()
	}

	review := &models.Review{
		BookingID:    booking.ID,
		TouristID:    caller.ID,
		ExperienceID: booking.ExperienceID,
		Rating:       req.Rating,
		Comment:      req.Comment,
	}
	return s.reviews.Create(review)
}

// ListByExperience lists an experience's reviews; public read
func (s *ReviewService) ListByExperience(experienceID uuid.UUID) ([]models.Review, error) {
	return s.reviews.ListByExperience(experienceID)
}

// AverageRating returns the mean rating for an experience; public read
func (s *ReviewService) AverageRating(experienceID uuid.UUID) (float64, error) {
	return s.reviews.AverageRating(experienceID)
}
