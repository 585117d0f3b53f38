// internal/handlers/project.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/panelforge/panelforge-backend/internal/services"
	"github.com/panelforge/panelforge-backend/internal/utils"
)

type ProjectHandler struct {
	catalogService *services.CatalogService
	storageService *services.StorageService
}

func NewProjectHandler(catalogService *services.CatalogService, storageService *services.StorageService) *ProjectHandler {
	return &ProjectHandler{
		catalogService: catalogService,
		storageService: storageService,
	}
}

// GET /projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	projects, total, err := h.catalogService.ListProjects(params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(projects, total, params))
}

// GET /projects/mine
func (h *ProjectHandler) ListMyProjects(c *gin.Context) {
	creatorID, ok := currentUserID(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	projects, total, err := h.catalogService.ListCreatorProjects(creatorID, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(projects, total, params))
}

// POST /projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	creatorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	project, err := h.catalogService.CreateProject(creatorID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, project)
}

// GET /projects/:projectId
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}

	project, err := h.catalogService.GetProject(projectID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, project)
}

// PATCH /projects/:projectId
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	creatorID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	project, err := h.catalogService.UpdateProject(projectID, creatorID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, project)
}

// POST /projects/:projectId/episodes
func (h *ProjectHandler) CreateEpisode(c *gin.Context) {
	creatorID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}

	var req services.CreateEpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	episode, err := h.catalogService.CreateEpisode(projectID, creatorID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, episode)
}

// GET /projects/:projectId/episodes
func (h *ProjectHandler) ListEpisodes(c *gin.Context) {
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	episodes, total, err := h.catalogService.ListProjectEpisodes(projectID, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(episodes, total, params))
}

// POST /projects/:projectId/uploads
func (h *ProjectHandler) UploadEpisodePages(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "file is required", err.Error())
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadEpisodePages(file, header, projectID)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, result)
}
