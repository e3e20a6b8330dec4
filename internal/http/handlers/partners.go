package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/softwareparlat/main/internal/http/middleware"
	"github.com/softwareparlat/main/internal/http/validation"
	"github.com/softwareparlat/main/internal/modules/partners"
	"github.com/softwareparlat/main/internal/shared/apperr"
)

type PartnersHandler struct {
	Partners *partners.Service
}

func NewPartnersHandler(svc *partners.Service) *PartnersHandler {
	return &PartnersHandler{Partners: svc}
}

type registerPartnerRequest struct {
	ContactEmail string `json:"contactEmail" binding:"omitempty,email,max=255"`
}

// POST /api/partners/register
func (h *PartnersHandler) Register(c *gin.Context) {
	u, ok := mustUser(c)
	if !ok {
		return
	}

	var req registerPartnerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.Fail(c, apperr.InvalidErr("invalid request", validation.FromBindError(err, &req)))
			return
		}
	}
	email := req.ContactEmail
	if email == "" {
		email = u.Email
	}

	p, err := h.Partners.Enroll(c.Request.Context(), partners.EnrollInput{UserID: u.ID, Email: email})
	switch {
	case errors.Is(err, partners.ErrAlreadyPartner):
		middleware.Fail(c, apperr.ConflictErr("user is already a partner"))
		return
	case err != nil:
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /api/partners/dashboard
func (h *PartnersHandler) Dashboard(c *gin.Context) {
	u, ok := mustUser(c)
	if !ok {
		return
	}

	d, err := h.Partners.Dashboard(c.Request.Context(), u.ID)
	switch {
	case errors.Is(err, partners.ErrNotFound):
		middleware.Fail(c, apperr.NotFoundErr("partner not found"))
		return
	case err != nil:
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, d)
}
