package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wundergunder/toadtourist-sub000/internal/authz"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

// CatalogService owns territory and experience records. Reads are public;
// every mutation goes through the authorization rules.
type CatalogService struct {
	experiences *database.ExperienceRepository
	territories *database.TerritoryRepository
	accounts    *database.AccountRepository
	logger      *logrus.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(
	experiences *database.ExperienceRepository,
	territories *database.TerritoryRepository,
	accounts *database.AccountRepository,
	logger *logrus.Logger,
) *CatalogService {
	return &CatalogService{
		experiences: experiences,
		territories: territories,
		accounts:    accounts,
		logger:      logger,
	}
}

// CreateExperience creates an experience. Guides create for themselves;
// territory managers create for any guide homed in their territory; admins
// for anyone. Available spots start equal to max spots.
func (s *CatalogService) CreateExperience(caller *models.Account, req *models.CreateExperienceRequest) (*models.Experience, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	territoryID, _ := uuid.Parse(req.TerritoryID)
	if _, err := s.territories.GetByID(territoryID); err != nil {
		return nil, err
	}

	guideID := caller.ID
	if req.GuideID != "" {
		guideID, _ = uuid.Parse(req.GuideID)
	}

	guide, err := s.accounts.GetByID(guideID)
	if err != nil {
		return nil, err
	}
	if !guide.HasRole(models.RoleTourGuide) {
		return nil, &models.ValidationError{Field: "guide_id", Constraint: "account does not hold the tour_guide role"}
	}
	if !guide.TerritoryID.Valid || guide.TerritoryID.UUID != territoryID {
		return nil, &models.ValidationError{Field: "guide_id", Constraint: "guide is not homed in the experience's territory"}
	}

	target := authz.Target{
		AccountID:   guideID,
		TerritoryID: uuid.NullUUID{UUID: territoryID, Valid: true},
	}
	if d := authz.Authorize(caller, authz.ActionCreateExperience, target); !d.Allowed {
		return nil, d.Err()
	}

	return s.experiences.Create(req, guideID, territoryID)
}

// UpdateExperience patches an experience, re-validating entity invariants on
// the patched fields
func (s *CatalogService) UpdateExperience(caller *models.Account, id uuid.UUID, req *models.UpdateExperienceRequest) (*models.Experience, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	experience, err := s.experiences.GetByID(id)
	if err != nil {
		return nil, err
	}

	target := authz.Target{
		AccountID:   experience.GuideID,
		TerritoryID: uuid.NullUUID{UUID: experience.TerritoryID, Valid: true},
	}
	if d := authz.Authorize(caller, authz.ActionUpdateExperience, target); !d.Allowed {
		return nil, d.Err()
	}

	// Reject patches that would leave more available spots than capacity.
	maxSpots := experience.MaxSpots
	if req.MaxSpots != nil {
		maxSpots = *req.MaxSpots
	}
	if req.AvailableSpots != nil && *req.AvailableSpots > maxSpots {
		return nil, &models.ValidationError{Field: "available_spots", Constraint: "must not exceed max_spots"}
	}

	return s.experiences.Update(id, req)
}

// DeleteExperience removes an experience
func (s *CatalogService) DeleteExperience(caller *models.Account, id uuid.UUID) error {
	experience, err := s.experiences.GetByID(id)
	if err != nil {
		return err
	}

	target := authz.Target{
		AccountID:   experience.GuideID,
		TerritoryID: uuid.NullUUID{UUID: experience.TerritoryID, Valid: true},
	}
	if d := authz.Authorize(caller, authz.ActionDeleteExperience, target); !d.Allowed {
		return d.Err()
	}

	return s.experiences.Delete(id)
}

// GetExperience retrieves an experience; public catalog read
func (s *CatalogService) GetExperience(id uuid.UUID) (*models.Experience, error) {
	return s.experiences.GetByID(id)
}

// ListExperiences lists all experiences, optionally filtered by territory
func (s *CatalogService) ListExperiences(territoryID *uuid.UUID) ([]models.Experience, error) {
	if territoryID != nil {
		return s.experiences.ListByTerritory(*territoryID)
	}
	return s.experiences.ListAll()
}

// ListExperiencesByGuide lists a guide's experiences; public catalog read
func (s *CatalogService) ListExperiencesByGuide(guideID uuid.UUID) ([]models.Experience, error) {
	return s.experiences.ListByGuide(guideID)
}

// CreateTerritory creates a territory; admin only
func (s *CatalogService) CreateTerritory(caller *models.Account, req *models.CreateTerritoryRequest) (*models.Territory, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if d := authz.Authorize(caller, authz.ActionManageTerritory, authz.Target{}); !d.Allowed {
		return nil, d.Err()
	}
	return s.territories.Create(req)
}

// UpdateTerritory edits a territory; admin only
func (s *CatalogService) UpdateTerritory(caller *models.Account, id uuid.UUID, req *models.UpdateTerritoryRequest) (*models.Territory, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if d := authz.Authorize(caller, authz.ActionManageTerritory, authz.Target{}); !d.Allowed {
		return nil, d.Err()
	}
	return s.territories.Update(id, req)
}

// GetTerritory retrieves a territory; public read
func (s *CatalogService) GetTerritory(id uuid.UUID) (*models.Territory, error) {
	return s.territories.GetByID(id)
}

// ListTerritories lists all territories; public read
func (s *CatalogService) ListTerritories() ([]models.Territory, error) {
	return s.territories.ListAll()
}
