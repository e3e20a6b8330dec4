package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/softwareparlat/main/internal/http/middleware"
	"github.com/softwareparlat/main/internal/http/validation"
	"github.com/softwareparlat/main/internal/modules/payments"
	"github.com/softwareparlat/main/internal/shared/apperr"
)

const checkoutFailedMsg = "payment could not be initiated"

type PaymentsHandler struct {
	Checkout *payments.Service
}

func NewPaymentsHandler(svc *payments.Service) *PaymentsHandler {
	return &PaymentsHandler{Checkout: svc}
}

type createPaymentRequest struct {
	Amount       *decimal.Decimal `json:"amount" binding:"required"`
	Description  string           `json:"description" binding:"omitempty,max=255"`
	ProjectID    string           `json:"projectId" binding:"omitempty,max=36"`
	PartnerID    string           `json:"partnerId" binding:"omitempty,max=36"`
	ReferralCode string           `json:"referralCode" binding:"omitempty,max=16"`
	Metadata     map[string]any   `json:"metadata"`
}

type createPaymentResponse struct {
	PaymentID    string `json:"paymentId"`
	PreferenceID string `json:"preferenceId"`
	RedirectURL  string `json:"redirectUrl"`
}

// POST /api/payments/create
func (h *PaymentsHandler) Create(c *gin.Context) {
	u, ok := mustUser(c)
	if !ok {
		return
	}

	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("invalid request", validation.FromBindError(err, &req)))
		return
	}

	res, err := h.Checkout.Initiate(c.Request.Context(), payments.InitiateInput{
		BuyerID:      u.ID,
		BuyerEmail:   u.Email,
		Amount:       *req.Amount,
		Description:  req.Description,
		ProjectID:    req.ProjectID,
		PartnerID:    req.PartnerID,
		ReferralCode: req.ReferralCode,
		Metadata:     req.Metadata,
	})
	if err != nil {
		middleware.Fail(c, checkoutError(err))
		return
	}

	c.JSON(http.StatusOK, createPaymentResponse{
		PaymentID:    res.PaymentID,
		PreferenceID: res.PreferenceID,
		RedirectURL:  res.RedirectURL,
	})
}

func checkoutError(err error) error {
	switch {
	case errors.Is(err, payments.ErrInvalidAmount):
		return apperr.InvalidErr("invalid amount", map[string]string{"amount": "Must be a positive amount with at most two decimals."})
	case errors.Is(err, payments.ErrInvalidCheckout):
		return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: "invalid checkout request", Err: err}
	case errors.Is(err, payments.ErrProviderUnavailable):
		return apperr.UnavailableErr(checkoutFailedMsg, err)
	default:
		return &apperr.AppError{Kind: apperr.Internal, PublicMsg: checkoutFailedMsg, Err: err}
	}
}
