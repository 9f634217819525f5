package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"themepark-backend/internal/domains/promotion/model"
	"themepark-backend/internal/domains/promotion/service"
	"themepark-backend/internal/shared/response"
)

// AdminHandler serves the admin-only promotion API.
type AdminHandler struct {
	service service.ServiceInterface
}

func NewAdminHandler(service service.ServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// -------------------------------------------------------------------
// CREATE & UPDATE
// -------------------------------------------------------------------

// CreatePromotion godoc
// @Summary      Create promotion
// @Description  Creates a promotion with conditions and actions (admin only)
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        request body model.CreatePromotionRequest true "Promotion"
// @Success      201 {object} response.Response{data=model.Promotion}
// @Failure      409 {object} response.Response
// @Failure      422 {object} response.Response
// @Security     BearerAuth
// @Router       /admin/promotions [post]
func (h *AdminHandler) CreatePromotion(c *gin.Context) {
	var req model.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	req.NormalizeCode()
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	promo, err := h.service.CreatePromotion(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, promo)
}

// UpdatePromotionStatus godoc
// @Summary      Activate or deactivate a promotion
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        id path string true "Promotion ID"
// @Param        request body model.UpdatePromotionStatusRequest true "Status"
// @Success      200 {object} response.Response{data=model.Promotion}
// @Failure      409 {object} response.Response "Version mismatch"
// @Security     BearerAuth
// @Router       /admin/promotions/{id}/status [patch]
func (h *AdminHandler) UpdatePromotionStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promotion id")
		return
	}

	var req model.UpdatePromotionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	promo, err := h.service.UpdatePromotionStatus(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promo)
}

// UpdatePromotion godoc
// @Summary      Edit promotion fields
// @Description  Omitted fields keep their value. Conditions and actions have their own endpoints.
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        id path string true "Promotion ID"
// @Param        request body model.UpdatePromotionRequest true "Fields"
// @Success      200 {object} response.Response{data=model.Promotion}
// @Failure      409 {object} response.Response "Version mismatch"
// @Failure      422 {object} response.Response
// @Security     BearerAuth
// @Router       /admin/promotions/{id} [patch]
func (h *AdminHandler) UpdatePromotion(c *gin.Context) {
	id, ok := promotionID(c)
	if !ok {
		return
	}

	var req model.UpdatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	promo, err := h.service.UpdatePromotion(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promo)
}

// DeletePromotion godoc
// @Summary      Delete promotion
// @Description  Only promotions that were never redeemed can be deleted
// @Tags         promotions
// @Param        id path string true "Promotion ID"
// @Success      204
// @Failure      409 {object} response.Response "Promotion has redemptions"
// @Security     BearerAuth
// @Router       /admin/promotions/{id} [delete]
func (h *AdminHandler) DeletePromotion(c *gin.Context) {
	id, ok := promotionID(c)
	if !ok {
		return
	}

	if err := h.service.DeletePromotion(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -------------------------------------------------------------------
// CONDITIONS & ACTIONS
// -------------------------------------------------------------------

// AddCondition godoc
// @Summary      Append a condition
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        id path string true "Promotion ID"
// @Param        request body model.RuleRequest true "Condition"
// @Success      201 {object} response.Response{data=model.Promotion}
// @Security     BearerAuth
// @Router       /admin/promotions/{id}/conditions [post]
func (h *AdminHandler) AddCondition(c *gin.Context) {
	h.addRule(c, h.service.AddCondition)
}

// UpdateCondition godoc
// @Summary      Replace a condition
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        id    path string true "Promotion ID"
// @Param        index path int    true "Condition position"
// @Param        request body model.RuleRequest true "Condition"
// @Success      200 {object} response.Response{data=model.Promotion}
// @Security     BearerAuth
// @Router       /admin/promotions/{id}/conditions/{index} [put]
func (h *AdminHandler) UpdateCondition(c *gin.Context) {
	h.replaceRule(c, h.service.UpdateCondition)
}

// RemoveCondition godoc
// @Summary      Remove a condition
// @Tags         promotions
// @Produce      json
// @Param        id      path  string true "Promotion ID"
// @Param        index   path  int    true "Condition position"
// @Param        version query int    true "Current promotion version"
// @Success      200 {object} response.Response{data=model.Promotion}
// @Security     BearerAuth
// @Router       /admin/promotions/{id}/conditions/{index} [delete]
func (h *AdminHandler) RemoveCondition(c *gin.Context) {
	h.removeRule(c, h.service.RemoveCondition)
}

// AddAction godoc
// @Summary      Append an action
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        id path string true "Promotion ID"
// @Param        request body model.RuleRequest true "Action"
// @Success      201 {object} response.Response{data=model.Promotion}
// @Security     BearerAuth
// @Router       /admin/promotions/{id}/actions [post]
func (h *AdminHandler) AddAction(c *gin.Context) {
	h.addRule(c, h.service.AddAction)
}

// UpdateAction godoc
// @Summary      Replace an action
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        id    path string true "Promotion ID"
// @Param        index path int    true "Action position"
// @Param        request body model.RuleRequest true "Action"
// @Success      200 {object} response.Response{data=model.Promotion}
// @Security     BearerAuth
// @Router       /admin/promotions/{id}/actions/{index} [put]
func (h *AdminHandler) UpdateAction(c *gin.Context) {
	h.replaceRule(c, h.service.UpdateAction)
}

// RemoveAction godoc
// @Summary      Remove an action
// @Description  The last action cannot be removed
// @Tags         promotions
// @Produce      json
// @Param        id      path  string true "Promotion ID"
// @Param        index   path  int    true "Action position"
// @Param        version query int    true "Current promotion version"
// @Success      200 {object} response.Response{data=model.Promotion}
// @Security     BearerAuth
// @Router       /admin/promotions/{id}/actions/{index} [delete]
func (h *AdminHandler) RemoveAction(c *gin.Context) {
	h.removeRule(c, h.service.RemoveAction)
}

type (
	addRuleFunc     func(ctx context.Context, id uuid.UUID, req *model.RuleRequest) (*model.Promotion, error)
	replaceRuleFunc func(ctx context.Context, id uuid.UUID, index int, req *model.RuleRequest) (*model.Promotion, error)
	removeRuleFunc  func(ctx context.Context, id uuid.UUID, index, version int) (*model.Promotion, error)
)

func (h *AdminHandler) addRule(c *gin.Context, add addRuleFunc) {
	id, ok := promotionID(c)
	if !ok {
		return
	}
	req, ok := bindRule(c)
	if !ok {
		return
	}

	promo, err := add(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, promo)
}

func (h *AdminHandler) replaceRule(c *gin.Context, replace replaceRuleFunc) {
	id, ok := promotionID(c)
	if !ok {
		return
	}
	index, ok := ruleIndex(c)
	if !ok {
		return
	}
	req, ok := bindRule(c)
	if !ok {
		return
	}

	promo, err := replace(c.Request.Context(), id, index, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promo)
}

func (h *AdminHandler) removeRule(c *gin.Context, remove removeRuleFunc) {
	id, ok := promotionID(c)
	if !ok {
		return
	}
	index, ok := ruleIndex(c)
	if !ok {
		return
	}
	version, err := strconv.Atoi(c.Query("version"))
	if err != nil || version < 0 {
		response.BadRequest(c, "version query parameter is required")
		return
	}

	promo, err := remove(c.Request.Context(), id, index, version)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promo)
}

func promotionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promotion id")
		return uuid.Nil, false
	}
	return id, true
}

func ruleIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.BadRequest(c, "invalid rule index")
		return 0, false
	}
	return index, true
}

func bindRule(c *gin.Context) (*model.RuleRequest, bool) {
	var req model.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return nil, false
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return nil, false
	}
	return &req, true
}

// -------------------------------------------------------------------
// READ
// -------------------------------------------------------------------

// GetPromotion godoc
// @Summary      Get promotion
// @Tags         promotions
// @Produce      json
// @Param        id path string true "Promotion ID"
// @Success      200 {object} response.Response{data=model.Promotion}
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /admin/promotions/{id} [get]
func (h *AdminHandler) GetPromotion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promotion id")
		return
	}

	promo, err := h.service.GetPromotionByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promo)
}

// ListPromotions godoc
// @Summary      List promotions
// @Tags         promotions
// @Produce      json
// @Param        status query string false "active | upcoming | expired | all"
// @Param        search query string false "Code or name"
// @Param        page   query int    false "Page"
// @Param        limit  query int    false "Page size"
// @Success      200 {object} response.Response{data=[]model.Promotion}
// @Security     BearerAuth
// @Router       /admin/promotions [get]
func (h *AdminHandler) ListPromotions(c *gin.Context) {
	var filter model.ListPromotionsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := filter.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	promotions, total, err := h.service.ListPromotions(c.Request.Context(), &filter)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, promotions, &response.Meta{
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	})
}
