// internal/services/catalog_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/apperrors"
	"github.com/panelforge/panelforge-backend/internal/config"
	"github.com/panelforge/panelforge-backend/internal/models"
	"github.com/panelforge/panelforge-backend/internal/utils"
)

// CatalogService owns the project/episode catalog. Everything that changes
// the economics of an episode lives in RulesService and IssuanceService;
// this service only creates and describes.
type CatalogService struct {
	db     *gorm.DB
	config *config.Config
}

func NewCatalogService(db *gorm.DB, cfg *config.Config) *CatalogService {
	return &CatalogService{db: db, config: cfg}
}

type CreateProjectRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=255"`
	Description string   `json:"description" validate:"required"`
	Genres      []string `json:"genres" validate:"required,min=1,dive,required"`
}

type UpdateProjectRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description,omitempty" validate:"omitempty,min=1"`
	Genres      []string `json:"genres,omitempty" validate:"omitempty,min=1,dive,required"`
}

type CreateEpisodeRequest struct {
	Title            string `json:"title" validate:"required,min=1,max=255"`
	Description      string `json:"description" validate:"required"`
	ContentReference string `json:"content_reference" validate:"required,max=512"`
	MintPrice        int64  `json:"mint_price" validate:"min=0"`
	MaxSupply        int64  `json:"max_supply" validate:"required,gt=0"`
}

func (s *CatalogService) CreateProject(creatorID uuid.UUID, req *CreateProjectRequest) (*models.ComicProject, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid project", err)
	}

	project := &models.ComicProject{
		CreatorID:   creatorID,
		Title:       req.Title,
		Description: req.Description,
		Genres:      pq.StringArray(req.Genres),
		Active:      true,
	}

	if err := s.db.Create(project).Error; err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

func (s *CatalogService) UpdateProject(projectID int64, creatorID uuid.UUID, req *UpdateProjectRequest) (*models.ComicProject, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid project update", err)
	}

	var project models.ComicProject
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "project %d not found", projectID)
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project.CreatorID != creatorID {
		return nil, apperrors.New(apperrors.CodeForbidden, "only the project creator may update it")
	}

	if req.Title != nil {
		project.Title = *req.Title
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Genres != nil {
		project.Genres = pq.StringArray(req.Genres)
	}

	if err := s.db.Save(&project).Error; err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return &project, nil
}

func (s *CatalogService) GetProject(projectID int64) (*models.ComicProject, error) {
	var project models.ComicProject
	err := s.db.Preload("Episodes", func(db *gorm.DB) *gorm.DB {
		return db.Order("episodes.id ASC")
	}).First(&project, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "project %d not found", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return &project, nil
}

func (s *CatalogService) ListProjects(params utils.PaginationParams) ([]models.ComicProject, int64, error) {
	query := s.db.Model(&models.ComicProject{}).Where("active = ?", true)
	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", search, search)
	}
	return s.listProjects(query, params)
}

func (s *CatalogService) ListCreatorProjects(creatorID uuid.UUID, params utils.PaginationParams) ([]models.ComicProject, int64, error) {
	query := s.db.Model(&models.ComicProject{}).Where("creator_id = ?", creatorID)
	return s.listProjects(query, params)
}

func (s *CatalogService) listProjects(query *gorm.DB, params utils.PaginationParams) ([]models.ComicProject, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	var projects []models.ComicProject
	query = utils.ApplySort(query, params, []string{"created_at", "title", "episode_count", "total_earnings"})
	if err := utils.ApplyPagination(query, params).Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, total, nil
}

// CreateEpisode appends an episode to a project and seeds its minting rules
// with the configured default split. Episode ids come from the global
// sequence, not per-project numbering.
func (s *CatalogService) CreateEpisode(projectID int64, creatorID uuid.UUID, req *CreateEpisodeRequest) (*models.Episode, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid episode", err)
	}

	var episode *models.Episode
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var project models.ComicProject
		if err := tx.First(&project, projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.CodeNotFound, "project %d not found", projectID)
			}
			return fmt.Errorf("failed to load project: %w", err)
		}
		if project.CreatorID != creatorID {
			return apperrors.New(apperrors.CodeForbidden, "only the project creator may add episodes")
		}

		episode = &models.Episode{
			ProjectID:        project.ID,
			CreatorID:        project.CreatorID,
			Title:            req.Title,
			Description:      req.Description,
			ContentReference: req.ContentReference,
			MintPrice:        req.MintPrice,
			MaxSupply:        req.MaxSupply,
		}
		if err := tx.Create(episode).Error; err != nil {
			return fmt.Errorf("failed to create episode: %w", err)
		}

		rules := &models.MintingRules{
			EpisodeID:          episode.ID,
			MintPrice:          req.MintPrice,
			MaxSupply:          req.MaxSupply,
			CreatorRewardBps:   s.config.Payment.DefaultCreatorRewardBps,
			PlatformFeeBps:     s.config.Payment.DefaultPlatformFeeBps,
			AllowPublicMinting: true,
		}
		if err := tx.Create(rules).Error; err != nil {
			return fmt.Errorf("failed to create minting rules: %w", err)
		}
		episode.Rules = rules

		if err := tx.Model(&models.ComicProject{}).
			Where("id = ?", project.ID).
			UpdateColumn("episode_count", gorm.Expr("episode_count + 1")).Error; err != nil {
			return fmt.Errorf("failed to update episode count: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return episode, nil
}

func (s *CatalogService) GetEpisode(episodeID int64) (*models.Episode, error) {
	var episode models.Episode
	err := s.db.Preload("Rules").First(&episode, episodeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "episode %d not found", episodeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load episode: %w", err)
	}
	return &episode, nil
}

func (s *CatalogService) ListProjectEpisodes(projectID int64, params utils.PaginationParams) ([]models.Episode, int64, error) {
	if _, err := s.GetProject(projectID); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Episode{}).Where("project_id = ?", projectID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count episodes: %w", err)
	}

	var episodes []models.Episode
	query = utils.ApplySort(query, params, []string{"created_at", "title", "total_reads", "total_earnings"})
	if err := utils.ApplyPagination(query, params).Find(&episodes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list episodes: %w", err)
	}

	return episodes, total, nil
}
