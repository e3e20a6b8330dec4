package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/softwareparlat/main/internal/http/middleware"
	"github.com/softwareparlat/main/internal/http/validation"
	"github.com/softwareparlat/main/internal/modules/providerconfig"
	"github.com/softwareparlat/main/internal/shared/apperr"
)

type ProviderConfigHandler struct {
	Svc *providerconfig.Service
}

func NewProviderConfigHandler(svc *providerconfig.Service) *ProviderConfigHandler {
	return &ProviderConfigHandler{Svc: svc}
}

// GET /api/admin/provider-config; null when nothing is stored yet.
func (h *ProviderConfigHandler) Get(c *gin.Context) {
	pc, err := h.Svc.Get(c.Request.Context())
	switch {
	case errors.Is(err, providerconfig.ErrNotFound):
		c.JSON(http.StatusOK, nil)
		return
	case err != nil:
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, providerconfig.NewView(pc))
}

type updateRequest struct {
	AccessToken     string `json:"accessToken" binding:"max=255"`
	PublicKey       string `json:"publicKey" binding:"required,max=255"`
	ClientID        string `json:"clientId" binding:"max=128"`
	ClientSecret    string `json:"clientSecret" binding:"max=255"`
	WebhookSecret   string `json:"webhookSecret" binding:"max=255"`
	NotificationURL string `json:"notificationUrl" binding:"omitempty,url,max=512"`
	IsSandbox       *bool  `json:"isSandbox"`
	IsActive        *bool  `json:"isActive"`
}

// PUT /api/admin/provider-config
func (h *ProviderConfigHandler) Update(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("invalid request", validation.FromBindError(err, &req)))
		return
	}

	pc, err := h.Svc.Update(c.Request.Context(), providerconfig.UpdateInput{
		AccessToken:     req.AccessToken,
		PublicKey:       req.PublicKey,
		ClientID:        req.ClientID,
		ClientSecret:    req.ClientSecret,
		WebhookSecret:   req.WebhookSecret,
		NotificationURL: req.NotificationURL,
		IsSandbox:       boolOr(req.IsSandbox, true),
		IsActive:        boolOr(req.IsActive, true),
	}, u.ID)
	switch {
	case errors.Is(err, providerconfig.ErrInvalidConfig):
		middleware.Fail(c, &apperr.AppError{Kind: apperr.Invalid, PublicMsg: err.Error(), Err: err})
		return
	case err != nil:
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, providerconfig.NewView(pc))
}

// POST /api/admin/provider-config/test
func (h *ProviderConfigHandler) Test(c *gin.Context) {
	res, err := h.Svc.TestConnection(c.Request.Context())
	switch {
	case errors.Is(err, providerconfig.ErrNotFound):
		middleware.Fail(c, apperr.InvalidErr("provider config not found", nil))
		return
	case err != nil:
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	c.JSON(status, res)
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
