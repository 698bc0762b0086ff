package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/globe_rooms/internal/catalog"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/recommend"
)

type CatalogProvider interface {
	Opportunities(ctx context.Context) ([]domain.Opportunity, error)
	Reload(ctx context.Context) ([]domain.Opportunity, error)
}

type Recommender interface {
	Recommend(ctx context.Context, links []recommend.OpportunityLink) (recommend.Recommendation, error)
	Locate(ctx context.Context, links []string) ([]domain.Opportunity, error)
}

type CatalogController struct {
	catalog CatalogProvider
	advisor Recommender
}

// NewCatalogController accepts a nil advisor; the model endpoints then answer
// 503.
func NewCatalogController(catalog CatalogProvider, advisor Recommender) *CatalogController {
	return &CatalogController{catalog: catalog, advisor: advisor}
}

func (c *CatalogController) ListOpportunities(ctx *gin.Context) {
	ops, err := c.catalog.Opportunities(ctx.Request.Context())
	if err != nil {
		abortWith(ctx, err)
		return
	}
	if country := ctx.Query("country"); country != "" {
		ops = catalog.ForCountry(ops, country)
	}
	ctx.JSON(http.StatusOK, gin.H{"opportunities": ops, "total": len(ops)})
}

func (c *CatalogController) Reload(ctx *gin.Context) {
	ops, err := c.catalog.Reload(ctx.Request.Context())
	if err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"total": len(ops)})
}

func (c *CatalogController) Recommend(ctx *gin.Context) {
	type request struct {
		Opportunities []recommend.OpportunityLink `json:"opportunities"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if c.advisor == nil {
		abortWith(ctx, recommend.ErrNoAPIKey)
		return
	}

	rec, err := c.advisor.Recommend(ctx.Request.Context(), req.Opportunities)
	if err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, rec)
}

func (c *CatalogController) Locate(ctx *gin.Context) {
	type request struct {
		Links []string `json:"links"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if c.advisor == nil {
		abortWith(ctx, recommend.ErrNoAPIKey)
		return
	}

	ops, err := c.advisor.Locate(ctx.Request.Context(), req.Links)
	if err != nil {
		abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"opportunities": ops})
}
