package controllers

import (
	"bytes"
	"net/http"

	"github.com/cheongsim/delivery-app/services"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/gin-gonic/gin"
)

type SalesController struct {
	Service *services.SalesService
}

func NewSalesController(service *services.SalesService) *SalesController {
	return &SalesController{Service: service}
}

// GetStats -> GET /api/sales/stats
func (sc *SalesController) GetStats(c *gin.Context) {
	stats, err := sc.Service.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sales statistics", stats)
}

// GetChart -> GET /api/sales/chart.png
func (sc *SalesController) GetChart(c *gin.Context) {
	var buf bytes.Buffer
	if err := sc.Service.RenderChart(c.Request.Context(), &buf); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
