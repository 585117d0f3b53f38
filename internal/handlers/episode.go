// internal/handlers/episode.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/panelforge/panelforge-backend/internal/services"
	"github.com/panelforge/panelforge-backend/internal/utils"
)

type EpisodeHandler struct {
	catalogService  *services.CatalogService
	rulesService    *services.RulesService
	issuanceService *services.IssuanceService
	readService     *services.ReadService
	storageService  *services.StorageService
}

func NewEpisodeHandler(
	catalogService *services.CatalogService,
	rulesService *services.RulesService,
	issuanceService *services.IssuanceService,
	readService *services.ReadService,
	storageService *services.StorageService,
) *EpisodeHandler {
	return &EpisodeHandler{
		catalogService:  catalogService,
		rulesService:    rulesService,
		issuanceService: issuanceService,
		readService:     readService,
		storageService:  storageService,
	}
}

// GET /episodes/:episodeId
func (h *EpisodeHandler) GetEpisode(c *gin.Context) {
	episodeID, ok := pathID(c, "episodeId")
	if !ok {
		return
	}

	episode, err := h.catalogService.GetEpisode(episodeID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, episode)
}

// PUT /episodes/:episodeId/rules
func (h *EpisodeHandler) SetMintingRules(c *gin.Context) {
	creatorID, ok := currentUserID(c)
	if !ok {
		return
	}
	episodeID, ok := pathID(c, "episodeId")
	if !ok {
		return
	}

	var req services.SetMintingRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	rules, err := h.rulesService.SetMintingRules(episodeID, creatorID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, rules)
}

// GET /episodes/:episodeId/rules
func (h *EpisodeHandler) GetMintingRules(c *gin.Context) {
	episodeID, ok := pathID(c, "episodeId")
	if !ok {
		return
	}

	rules, err := h.rulesService.GetMintingRules(episodeID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, rules)
}

// POST /episodes/:episodeId/live
func (h *EpisodeHandler) GoLive(c *gin.Context) {
	creatorID, ok := currentUserID(c)
	if !ok {
		return
	}
	episodeID, ok := pathID(c, "episodeId")
	if !ok {
		return
	}

	episode, err := h.issuanceService.GoLive(c.Request.Context(), episodeID, creatorID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, episode)
}

// POST /episodes/:episodeId/mint
func (h *EpisodeHandler) Mint(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		return
	}
	episodeID, ok := pathID(c, "episodeId")
	if !ok {
		return
	}

	token, err := h.issuanceService.Mint(c.Request.Context(), episodeID, buyerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, token)
}

// POST /episodes/:episodeId/read
func (h *EpisodeHandler) Read(c *gin.Context) {
	readerID, ok := currentUserID(c)
	if !ok {
		return
	}
	episodeID, ok := pathID(c, "episodeId")
	if !ok {
		return
	}

	episode, err := h.readService.ReadComic(c.Request.Context(), episodeID, readerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	pagesURL, err := h.storageService.PresignedPageURL(episode.ContentReference, 15*time.Minute)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"episode":   episode,
		"pages_url": pagesURL,
	})
}

// GET /episodes/:episodeId/access
func (h *EpisodeHandler) CheckAccess(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	episodeID, ok := pathID(c, "episodeId")
	if !ok {
		return
	}

	hasAccess, err := h.readService.HasReadAccess(episodeID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"has_access": hasAccess})
}

// GET /tokens/mine
func (h *EpisodeHandler) ListMyTokens(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	tokens, total, err := h.issuanceService.ListTokens(ownerID, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(tokens, total, params))
}
