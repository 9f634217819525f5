package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"themepark-backend/internal/domains/promotion/service"
	"themepark-backend/internal/shared/response"
	"themepark-backend/internal/shared/utils"
)

// PublicHandler serves the visitor-facing promotion API.
type PublicHandler struct {
	service service.ServiceInterface
}

func NewPublicHandler(promotionService service.ServiceInterface) *PublicHandler {
	return &PublicHandler{service: promotionService}
}

// ListActivePromotions godoc
// @Summary      List active promotions
// @Description  Promotions running on the given visit date (default today)
// @Tags         promotions
// @Produce      json
// @Param        date query string false "Visit date (YYYY-MM-DD)"
// @Success      200 {object} response.Response{data=[]model.Promotion}
// @Router       /promotions [get]
func (h *PublicHandler) ListActivePromotions(c *gin.Context) {
	day := utils.StartOfDay(time.Now())
	if raw := c.Query("date"); raw != "" {
		parsed, err := utils.ParseDate(raw)
		if err != nil {
			response.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	promotions, err := h.service.ListActivePromotions(c.Request.Context(), day)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promotions)
}
