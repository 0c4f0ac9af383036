package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/wundergunder/toadtourist-sub000/internal/authz"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

// BookingConfig holds tunables for the booking flow
type BookingConfig struct {
	// MaxRetries bounds retries of the atomic spot decrement when the
	// transaction conflicts with concurrent bookings. A genuine capacity
	// shortfall is never retried.
	MaxRetries     int
	CommissionRate float64
}

// DefaultBookingConfig returns default booking configuration
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		MaxRetries:     3,
		CommissionRate: 0.10,
	}
}

// BookingLedger is the storage surface the booking flow needs. The single
// CreateWithReferral call owns the whole transaction: spot decrement,
// booking insert and referral bookkeeping commit or roll back together.
type BookingLedger interface {
	CreateWithReferral(booking *models.Booking, link *models.ReferralLink, commissionRate float64) (*models.Booking, error)
	GetByID(id uuid.UUID) (*models.Booking, error)
	ListByTourist(touristID uuid.UUID) ([]models.Booking, error)
	ListByExperience(experienceID uuid.UUID) ([]models.Booking, error)
	ListByGuide(guideID uuid.UUID) ([]models.Booking, error)
	MarkPaymentCompleted(id uuid.UUID) (*models.Booking, error)
}

// ExperienceReader provides point lookups of experiences
type ExperienceReader interface {
	GetByID(id uuid.UUID) (*models.Experience, error)
}

// AccountReader provides point lookups of accounts
type AccountReader interface {
	GetByID(id uuid.UUID) (*models.Account, error)
}

// OverrideStore manages per-date capacity overrides
type OverrideStore interface {
	Upsert(experienceID uuid.UUID, date time.Time, maxCapacity, bookedCount int) (*models.AvailabilityOverride, error)
	ListByExperience(experienceID uuid.UUID) ([]models.AvailabilityOverride, error)
}

// ReferralResolver resolves referral codes to active links
type ReferralResolver interface {
	GetActiveLinkByCode(code string) (*models.ReferralLink, error)
}

// ReferralSession reads the referral code attached to a browsing session
type ReferralSession interface {
	ReferralCode(ctx context.Context, sessionID string) (string, error)
	ClearReferralCode(ctx context.Context, sessionID string) error
}

// BookingService implements the booking and availability ledger
type BookingService struct {
	bookings    BookingLedger
	experiences ExperienceReader
	accounts    AccountReader
	overrides   OverrideStore
	referrals   ReferralResolver
	sessions    ReferralSession
	config      BookingConfig
	logger      *logrus.Logger

	// now is replaceable in tests
	now func() time.Time
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookings BookingLedger,
	experiences ExperienceReader,
	accounts AccountReader,
	overrides OverrideStore,
	referrals ReferralResolver,
	sessions ReferralSession,
	config BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookings:    bookings,
		experiences: experiences,
		accounts:    accounts,
		overrides:   overrides,
		referrals:   referrals,
		sessions:    sessions,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateBooking books spots on an experience for a tourist. When the browsing
// session carries a valid active referral code, the referral and commission
// are written in the same transaction as the booking.
func (s *BookingService) CreateBooking(ctx context.Context, tourist *models.Account, req *models.CreateBookingRequest, sessionID string) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	date := req.ParsedDate()
	local := s.now().In(time.FixedZone("client", req.TZOffsetMinutes*60))
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return nil, &models.ValidationError{Field: "date", Constraint: "must not be in the past"}
	}

	if d := authz.Authorize(tourist, authz.ActionCreateBooking, authz.Target{AccountID: tourist.ID}); !d.Allowed {
		return nil, d.Err()
	}

	experienceID, _ := uuid.Parse(req.ExperienceID)
	experience, err := s.experiences.GetByID(experienceID)
	if err != nil {
		return nil, err
	}

	link, err := s.resolveSessionReferral(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ExperienceID:  experience.ID,
		TouristID:     tourist.ID,
		BookingDate:   date,
		NumPeople:     req.NumPeople,
		TotalPrice:    experience.Price * float64(req.NumPeople),
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		PaymentStatus: models.PaymentStatusPending,
	}

	created, err := s.createWithRetry(booking, link)
	if err != nil {
		return nil, err
	}

	if link != nil && sessionID != "" {
		// The attribution is consumed; best effort, the booking stands either way.
		if err := s.sessions.ClearReferralCode(ctx, sessionID); err != nil {
			s.logger.WithError(err).Warn("failed to clear referral session after booking")
		}
	}

	return created, nil
}

// createWithRetry retries the atomic booking transaction on serialization
// conflicts only, up to the configured bound. InsufficientAvailability and
// every other error surface immediately.
func (s *BookingService) createWithRetry(booking *models.Booking, link *models.ReferralLink) (*models.Booking, error) {
	var lastErr error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		created, err := s.bookings.CreateWithReferral(booking, link, s.config.CommissionRate)
		if err == nil {
			return created, nil
		}
		if !isSerializationConflict(err) {
			return nil, err
		}
		lastErr = err
		s.logger.WithError(err).WithField("attempt", attempt+1).Warn("booking transaction conflicted, retrying")
	}
	s.logger.WithError(lastErr).Error("booking retries exhausted")
	return nil, models.ErrConflictRetryExhausted
}

// resolveSessionReferral maps the session's attached code to an active link.
// Unknown or inactive codes mean no attribution, never a booking failure.
func (s *BookingService) resolveSessionReferral(ctx context.Context, sessionID string) (*models.ReferralLink, error) {
	if sessionID == "" {
		return nil, nil
	}
	code, err := s.sessions.ReferralCode(ctx, sessionID)
	if err != nil {
		// The session store being down must not block bookings; the booking
		// simply proceeds unattributed.
		s.logger.WithError(err).Warn("failed to read referral session")
		return nil, nil
	}
	if code == "" {
		return nil, nil
	}
	link, err := s.referrals.GetActiveLinkByCode(code)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return link, nil
}

// MarkPaymentCompleted transitions a booking's payment from pending to
// completed. Allowed for the experience's guide, a territory manager of the
// experience's territory, or an admin.
func (s *BookingService) MarkPaymentCompleted(caller *models.Account, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	experience, err := s.experiences.GetByID(booking.ExperienceID)
	if err != nil {
		return nil, err
	}

	target := authz.Target{
		AccountID:   experience.GuideID,
		TerritoryID: uuid.NullUUID{UUID: experience.TerritoryID, Valid: true},
	}
	if d := authz.Authorize(caller, authz.ActionMarkPaymentCompleted, target); !d.Allowed {
		return nil, d.Err()
	}

	return s.bookings.MarkPaymentCompleted(bookingID)
}

// SetAvailabilityOverride sets the per-date capacity override for an
// experience. Allowed for the owning guide, the territory's manager or an
// admin.
func (s *BookingService) SetAvailabilityOverride(caller *models.Account, experienceID uuid.UUID, req *models.SetAvailabilityOverrideRequest) (*models.AvailabilityOverride, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	experience, err := s.experiences.GetByID(experienceID)
	if err != nil {
		return nil, err
	}

	target := authz.Target{
		AccountID:   experience.GuideID,
		TerritoryID: uuid.NullUUID{UUID: experience.TerritoryID, Valid: true},
	}
	if d := authz.Authorize(caller, authz.ActionSetAvailability, target); !d.Allowed {
		return nil, d.Err()
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	return s.overrides.Upsert(experienceID, date, req.MaxCapacity, req.BookedCount)
}

// ListAvailabilityOverrides returns the date overrides for an experience
func (s *BookingService) ListAvailabilityOverrides(experienceID uuid.UUID) ([]models.AvailabilityOverride, error) {
	if _, err := s.experiences.GetByID(experienceID); err != nil {
		return nil, err
	}
	return s.overrides.ListByExperience(experienceID)
}

// ListForTourist returns a tourist's own bookings
func (s *BookingService) ListForTourist(touristID uuid.UUID) ([]models.Booking, error) {
	return s.bookings.ListByTourist(touristID)
}

// ListForGuide returns bookings against any of a guide's experiences.
// Visible to the guide, an admin, or a territory manager whose home
// territory is the guide's.
func (s *BookingService) ListForGuide(caller *models.Account, guideID uuid.UUID) ([]models.Booking, error) {
	switch {
	case caller.ID == guideID, caller.HasRole(models.RoleAdmin):
	case caller.HasRole(models.RoleTerritoryManager) && caller.TerritoryID.Valid:
		guide, err := s.accounts.GetByID(guideID)
		if err != nil {
			return nil, err
		}
		if !guide.TerritoryID.Valid || guide.TerritoryID.UUID != caller.TerritoryID.UUID {
			return nil, &models.UnauthorizedError{Reason: "insufficient role"}
		}
	default:
		return nil, &models.UnauthorizedError{Reason: "insufficient role"}
	}
	return s.bookings.ListByGuide(guideID)
}

// GetBooking returns a booking visible to its tourist, the experience's
// guide, a territory manager of its territory, or an admin
func (s *BookingService) GetBooking(caller *models.Account, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.TouristID == caller.ID || caller.HasRole(models.RoleAdmin) {
		return booking, nil
	}

	experience, err := s.experiences.GetByID(booking.ExperienceID)
	if err != nil {
		return nil, err
	}
	if experience.GuideID == caller.ID {
		return booking, nil
	}
	if caller.HasRole(models.RoleTerritoryManager) && caller.TerritoryID.Valid && caller.TerritoryID.UUID == experience.TerritoryID {
		return booking, nil
	}
	return nil, &models.UnauthorizedError{Reason: "insufficient role"}
}

func isSerializationConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
