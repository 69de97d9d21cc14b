package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/montrealks/bowerbirder/internal/api/dto"
	"github.com/montrealks/bowerbirder/internal/config"
)

// ListStyles handles GET /styles.
func (h *JobHandler) ListStyles(c *gin.Context) {
	presets := config.Styles()
	styles := make([]dto.StyleDTO, len(presets))
	for i, p := range presets {
		styles[i] = dto.StyleDTO{ID: p.ID, Name: p.Name}
	}
	c.JSON(http.StatusOK, dto.ListStylesResponse{Styles: styles})
}

// ListAspectRatios handles GET /aspect-ratios.
func (h *JobHandler) ListAspectRatios(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ListAspectRatiosResponse{
		AspectRatios: config.AspectRatios(),
	})
}
