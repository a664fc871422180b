package handlers

import (
	"net/http"

	"placement-optimizer/internal/api/models"
	"placement-optimizer/internal/model"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the read-only quote market.
type CatalogHandler struct {
	catalog *model.Catalog
}

func NewCatalogHandler(cat *model.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// ListQuotes handles GET /api/v1/quotes
func (h *CatalogHandler) ListQuotes(c *gin.Context) {
	var q models.QuotesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	quotes := []model.Quote{}
	for _, quote := range h.catalog.Quotes() {
		if q.Layer != "" && quote.Layer != q.Layer {
			continue
		}
		if q.Carrier != "" && quote.Carrier != q.Carrier {
			continue
		}
		if quote.CreditRatingValue < q.MinCredit {
			continue
		}
		quotes = append(quotes, quote)
	}
	c.JSON(http.StatusOK, models.QuotesResponse{Quotes: quotes, Carriers: h.catalog.Carriers()})
}

// ListLayers handles GET /api/v1/layers
func (h *CatalogHandler) ListLayers(c *gin.Context) {
	layers := h.catalog.Layers()
	out := make([]models.LayerInfo, 0, len(layers))
	for _, l := range layers {
		info := models.LayerInfo{Name: l.Name, RequiredCapacity: l.RequiredCapacity}
		for _, i := range h.catalog.QuotesInLayer(l.Name) {
			info.AvailableCapacity += h.catalog.Quote(i).Capacity
			info.Quotes++
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, models.LayersResponse{Layers: out})
}
