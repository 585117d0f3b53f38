// internal/handlers/earnings.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/panelforge/panelforge-backend/internal/services"
	"github.com/panelforge/panelforge-backend/internal/utils"
)

type EarningsHandler struct {
	revenueService      *services.RevenueService
	withdrawalService   *services.WithdrawalService
	issuanceService     *services.IssuanceService
	notificationService *services.NotificationService
}

func NewEarningsHandler(
	revenueService *services.RevenueService,
	withdrawalService *services.WithdrawalService,
	issuanceService *services.IssuanceService,
	notificationService *services.NotificationService,
) *EarningsHandler {
	return &EarningsHandler{
		revenueService:      revenueService,
		withdrawalService:   withdrawalService,
		issuanceService:     issuanceService,
		notificationService: notificationService,
	}
}

// GET /earnings
func (h *EarningsHandler) GetMyEarnings(c *gin.Context) {
	creatorID, ok := currentUserID(c)
	if !ok {
		return
	}

	aggregate, err := h.revenueService.CreatorEarnings(creatorID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, aggregate)
}

// GET /projects/:projectId/earnings
func (h *EarningsHandler) GetProjectEarnings(c *gin.Context) {
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}

	aggregate, err := h.revenueService.ProjectEarnings(projectID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, aggregate)
}

// GET /episodes/:episodeId/earnings
func (h *EarningsHandler) GetEpisodeEarnings(c *gin.Context) {
	episodeID, ok := pathID(c, "episodeId")
	if !ok {
		return
	}

	aggregate, err := h.revenueService.EpisodeEarnings(episodeID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, aggregate)
}

// POST /earnings/withdraw
func (h *EarningsHandler) Withdraw(c *gin.Context) {
	creatorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	withdrawn, err := h.withdrawalService.WithdrawCreatorEarnings(c.Request.Context(), creatorID, req.Amount)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"withdrawn": withdrawn})
}

// GET /admin/platform/balance
func (h *EarningsHandler) GetPlatformBalance(c *gin.Context) {
	ledger, err := h.revenueService.PlatformBalance()
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, ledger)
}

// POST /admin/platform/withdraw
func (h *EarningsHandler) WithdrawPlatformFees(c *gin.Context) {
	operatorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Amount int64 `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	if err := h.withdrawalService.WithdrawPlatformFees(c.Request.Context(), operatorID, req.Amount); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"withdrawn": req.Amount})
}

// GET /admin/reconciliation
func (h *EarningsHandler) ListReconciliationEntries(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	entries, total, err := h.issuanceService.ListReconciliationEntries(params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(entries, total, params))
}

// POST /admin/reconciliation/:entryId/resolve
func (h *EarningsHandler) ResolveReconciliationEntry(c *gin.Context) {
	entryID, ok := pathID(c, "entryId")
	if !ok {
		return
	}

	if err := h.issuanceService.ResolveReconciliationEntry(entryID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"resolved": true})
}

// GET /notifications
func (h *EarningsHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	notifications, err := h.notificationService.ListNotifications(userID, limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, notifications)
}

// POST /notifications/:notificationId/read
func (h *EarningsHandler) MarkNotificationRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	notificationID, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid notificationId", nil)
		return
	}

	if err := h.notificationService.MarkRead(notificationID, userID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"read": true})
}
