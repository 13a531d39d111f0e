package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"recipebox/internal/api/middleware"
	"recipebox/internal/model"

	"github.com/gin-gonic/gin"
)

type createNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// parseBoolQuery 解析布尔查询参数，无法解析时视为 false。
func parseBoolQuery(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return false
	}
	return v
}

// handleListTags 返回当前用户的标签，按名称倒序。
//
// GET /recipe/tags?assigned_only=1
func (s *Server) handleListTags(c *gin.Context) {
	userID := middleware.UserID(c)
	assignedOnly := parseBoolQuery(c, "assigned_only")

	tags, err := s.catalog.ListTags(c.Request.Context(), userID, assignedOnly)
	if err != nil {
		s.logger.Error("list tags failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list tags failed"})
		return
	}
	c.JSON(http.StatusOK, newTagResponses(tags))
}

// handleCreateTag 为当前用户创建标签。
//
// POST /recipe/tags
func (s *Server) handleCreateTag(c *gin.Context) {
	userID := middleware.UserID(c)
	var req createNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag := model.Tag{UserID: userID, Name: req.Name}
	if err := s.catalog.CreateTag(c.Request.Context(), &tag); err != nil {
		s.logger.Error("create tag failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create tag failed"})
		return
	}
	c.JSON(http.StatusCreated, newTagResponse(tag))
}

// handleListIngredients 返回当前用户的原料，按名称倒序。
//
// GET /recipe/ingredients?assigned_only=1
func (s *Server) handleListIngredients(c *gin.Context) {
	userID := middleware.UserID(c)
	assignedOnly := parseBoolQuery(c, "assigned_only")

	ingredients, err := s.catalog.ListIngredients(c.Request.Context(), userID, assignedOnly)
	if err != nil {
		s.logger.Error("list ingredients failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list ingredients failed"})
		return
	}
	c.JSON(http.StatusOK, newIngredientResponses(ingredients))
}

// handleCreateIngredient 为当前用户创建原料。
//
// POST /recipe/ingredients
func (s *Server) handleCreateIngredient(c *gin.Context) {
	userID := middleware.UserID(c)
	var req createNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ingredient := model.Ingredient{UserID: userID, Name: req.Name}
	if err := s.catalog.CreateIngredient(c.Request.Context(), &ingredient); err != nil {
		s.logger.Error("create ingredient failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create ingredient failed"})
		return
	}
	c.JSON(http.StatusCreated, newIngredientResponse(ingredient))
}
