package handler

import (
	"net/http"
	"strconv"

	"github.com/apexqbank/apex-backend/internal/middleware"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/apexqbank/apex-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PaymentHandler handles plans, payment claims and their review.
type PaymentHandler struct {
	paymentService *service.PaymentService
	settingService *service.SettingService
	log            zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService, settingService *service.SettingService, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		settingService: settingService,
		log:            log.With().Str("component", "payment_handler").Logger(),
	}
}

func claimParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// ListPlans godoc
// GET /api/v1/plans
func (h *PaymentHandler) ListPlans(c *gin.Context) {
	response.Success(c, http.StatusOK, model.Plans)
}

// Instructions godoc
// GET /api/v1/payments/instructions
// Returns the transfer accounts and contact details.
func (h *PaymentHandler) Instructions(c *gin.Context) {
	out, err := h.settingService.PaymentInstructions(c.Request.Context())
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// CreateClaim godoc
// POST /api/v1/payments/claims
func (h *PaymentHandler) CreateClaim(c *gin.Context) {
	var req model.CreateClaimRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claim, err := h.paymentService.CreateClaim(c.Request.Context(), middleware.GetLearnerID(c), &req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, claim)
}

// UploadProof godoc
// POST /api/v1/payments/claims/:id/proof
// Attaches a receipt screenshot (multipart field "file").
func (h *PaymentHandler) UploadProof(c *gin.Context) {
	id, ok := claimParam(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	claim, err := h.paymentService.UploadProof(c.Request.Context(), middleware.GetLearnerID(c), id, file, header)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, claim)
}

// ListMyClaims godoc
// GET /api/v1/payments/claims
func (h *PaymentHandler) ListMyClaims(c *gin.Context) {
	claims, err := h.paymentService.ListMine(c.Request.Context(), middleware.GetLearnerID(c))
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, claims)
}

// ─── Admin review ────────────────────────────────────────────────────

// ListClaims godoc
// GET /api/v1/admin/payments/claims?status=pending&page=1&per_page=20
func (h *PaymentHandler) ListClaims(c *gin.Context) {
	status := model.ClaimStatus(c.DefaultQuery("status", string(model.ClaimStatusPending)))
	switch status {
	case model.ClaimStatusPending, model.ClaimStatusApproved, model.ClaimStatusRejected:
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"status": "status must be one of pending, approved, rejected"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	page, perPage = response.ClampPage(page, perPage, 100)

	claims, total, err := h.paymentService.ListByStatus(c.Request.Context(), status, page, perPage)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, claims, response.NewPagination(page, perPage, total))
}

// ApproveClaim godoc
// POST /api/v1/admin/payments/claims/:id/approve
// Grants the claimed plan to the learner.
func (h *PaymentHandler) ApproveClaim(c *gin.Context) {
	id, ok := claimParam(c)
	if !ok {
		return
	}

	profile, err := h.paymentService.Approve(c.Request.Context(), id, middleware.GetAdminID(c))
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}

// RejectClaim godoc
// POST /api/v1/admin/payments/claims/:id/reject
func (h *PaymentHandler) RejectClaim(c *gin.Context) {
	id, ok := claimParam(c)
	if !ok {
		return
	}

	var req model.RejectClaimRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.paymentService.Reject(c.Request.Context(), id, middleware.GetAdminID(c), req.Note); err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": model.ClaimStatusRejected})
}
