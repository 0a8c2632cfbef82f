package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thorntonevents/ingest/app/database"
	"github.com/thorntonevents/ingest/app/events"
	"github.com/thorntonevents/ingest/app/sources"
)

// expiringSoonWindow is the display-only horizon for flagging deals that are
// about to end. Stored deal status is never derived from it.
const expiringSoonWindow = 72 * time.Hour

func NewHandler(configCache *sources.ConfigCache, eventRepo database.EventRepository,
	dealRepo database.DealRepository, articleRepo database.ArticleRepository,
	sourceRepo database.SourceRepository, runner RunTrigger, dealsSourceURL string) *Handler {
	return &Handler{
		eventRepo:      eventRepo,
		dealRepo:       dealRepo,
		articleRepo:    articleRepo,
		sourceRepo:     sourceRepo,
		configCache:    configCache,
		runner:         runner,
		dealsSourceURL: dealsSourceURL,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if eventCount, err := h.eventRepo.GetEventCount(); err == nil {
		health["events"] = eventCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if count, err := h.eventRepo.GetEventCount(); err == nil {
		stats["events"] = count
	}
	if count, err := h.dealRepo.GetDealCount(); err == nil {
		stats["deals"] = count
	}
	if count, err := h.articleRepo.GetArticleCount(); err == nil {
		stats["articles"] = count
	}
	if bySource, err := h.eventRepo.CountBySource(); err == nil {
		stats["events_by_source"] = bySource
	}

	srcs, err := h.sourceRepo.ListSources()
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	sourceStats := make([]map[string]interface{}, 0, len(srcs))
	for _, src := range srcs {
		info := map[string]interface{}{
			"name":             src.Name,
			"type":             src.Type,
			"enabled":          src.Enabled,
			"last_status":      src.LastStatus,
			"last_event_count": src.LastEventCount,
		}
		if src.LastRunAt != nil {
			info["last_run_at"] = src.LastRunAt.Format(time.RFC3339)
		}
		if src.NextRunAt != nil {
			info["next_run_at"] = src.NextRunAt.Format(time.RFC3339)
		}
		if src.LastError != "" {
			info["last_error"] = src.LastError
		}
		sourceStats = append(sourceStats, info)
	}
	stats["sources"] = sourceStats

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListEvents(c *gin.Context) {
	limit := parseLimit(c, 100)

	upcoming, err := h.eventRepo.GetUpcoming(time.Now().UTC(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_upcoming", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": upcoming, "count": len(upcoming)})
}

func (h *Handler) ListDeals(c *gin.Context) {
	limit := parseLimit(c, 50)

	deals, err := h.dealRepo.GetByStatus("active", limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_deals", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	out := make([]map[string]interface{}, 0, len(deals))
	for _, deal := range deals {
		info := map[string]interface{}{
			"slug":            deal.Slug,
			"title":           deal.Title,
			"description":     deal.Description,
			"business_name":   deal.BusinessName,
			"deal_type":       deal.DealType,
			"discount_amount": deal.DiscountAmount,
			"promo_code":      deal.PromoCode,
			"category":        deal.Category,
			"terms":           deal.Terms,
			"url":             deal.URL,
			"image_url":       deal.ImageURL,
			"featured":        deal.Featured,
		}
		if deal.StartDate != nil {
			info["start_date"] = deal.StartDate.Format("2006-01-02")
		}
		if deal.EndDate != nil {
			info["end_date"] = deal.EndDate.Format("2006-01-02")
			info["expired"] = deal.EndDate.Before(now)
			info["expiring_soon"] = !deal.EndDate.Before(now) && deal.EndDate.Before(now.Add(expiringSoonWindow))
		}
		out = append(out, info)
	}

	c.JSON(http.StatusOK, gin.H{"deals": out, "count": len(out)})
}

func (h *Handler) ListArticles(c *gin.Context) {
	limit := parseLimit(c, 20)

	articles, err := h.articleRepo.ListPublished(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"articles": articles, "count": len(articles)})
}

func (h *Handler) GetArticle(c *gin.Context) {
	slug := c.Param("slug")

	article, err := h.articleRepo.GetBySlug(slug)
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "slug", slug, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if article == nil || article.Status != "published" {
		c.Status(http.StatusNotFound)
		return
	}

	if err := h.articleRepo.IncrementViewCount(slug); err != nil {
		slog.Warn("Failed to increment view count", "slug", slug, "error", err)
	}

	c.JSON(http.StatusOK, article)
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if err := h.runner.TriggerRun(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Ingestion run started"})
}

func (h *Handler) APIListSources(c *gin.Context) {
	srcs, err := h.sourceRepo.ListSources()
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sources": srcs, "count": len(srcs)})
}

type createArticleRequest struct {
	Title    string   `json:"title" binding:"required"`
	Content  string   `json:"content" binding:"required"`
	Excerpt  string   `json:"excerpt"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	ImageURL string   `json:"image_url"`
}

func (h *Handler) APICreateArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	article := database.Article{
		Slug:     events.Slugify(req.Title),
		Title:    req.Title,
		Content:  req.Content,
		Excerpt:  req.Excerpt,
		Category: req.Category,
		Tags:     req.Tags,
		ImageURL: req.ImageURL,
		Status:   "draft",
	}

	if err := h.articleRepo.Create(article); err != nil {
		slog.Error("Database error", "operation", "create_article", "slug", article.Slug, "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"slug": article.Slug, "status": article.Status})
}

func (h *Handler) APIPublishArticle(c *gin.Context) {
	slug := c.Param("slug")

	if err := h.articleRepo.Publish(slug, time.Now().UTC()); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"slug": slug, "status": "published"})
}

type updateDealStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) APIUpdateDealStatus(c *gin.Context) {
	slug := c.Param("slug")

	var req updateDealStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Status {
	case "active", "paused", "expired":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: active, paused, expired"})
		return
	}

	if err := h.dealRepo.UpdateStatus(slug, req.Status); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"slug": slug, "status": req.Status})
}

type cleanupDealsRequest struct {
	URL string `json:"url"`
}

// APICleanupDeals deletes expired deals for one source URL. The scope is
// deliberately narrow; deals from other URLs are never touched.
func (h *Handler) APICleanupDeals(c *gin.Context) {
	var req cleanupDealsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	url := req.URL
	if url == "" {
		url = h.dealsSourceURL
	}
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no source URL given and no deals source URL configured"})
		return
	}

	deleted, err := h.dealRepo.DeleteExpiredByURL(url, time.Now().UTC())
	if err != nil {
		slog.Error("Database error", "operation", "cleanup_deals", "url", url, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "deleted": deleted})
}

func parseLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(fallback)))
	if err != nil || limit < 1 || limit > 500 {
		return fallback
	}
	return limit
}
