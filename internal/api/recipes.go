package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"recipebox/internal/api/middleware"
	"recipebox/internal/model"
	"recipebox/internal/pkg/metrics"
	"recipebox/internal/storage"

	"github.com/gin-gonic/gin"
)

// recipeWriteRequest 创建与整体替换（PUT）共用的请求体。
type recipeWriteRequest struct {
	Title       string  `json:"title" binding:"required"`
	TimeMinutes int     `json:"time_minutes"`
	Price       float64 `json:"price"`
	Link        string  `json:"link"`
	Tags        []uint  `json:"tags"`
	Ingredients []uint  `json:"ingredients"`
}

// recipePatchRequest 部分更新的请求体；nil 字段保持原值。
type recipePatchRequest struct {
	Title       *string  `json:"title"`
	TimeMinutes *int     `json:"time_minutes"`
	Price       *float64 `json:"price"`
	Link        *string  `json:"link"`
	Tags        *[]uint  `json:"tags"`
	Ingredients *[]uint  `json:"ingredients"`
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return 0, false
	}
	return uint(id), true
}

// parseIDList 解析逗号分隔的 ID 列表并去重，如 "1,2,2" -> [1 2]。
func parseIDList(raw string) ([]uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	seen := make(map[uint]struct{})
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil || id == 0 {
			return nil, errors.New("invalid id list")
		}
		if _, ok := seen[uint(id)]; ok {
			continue
		}
		seen[uint(id)] = struct{}{}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// resolveTags 把标签 ID 解析为当前用户的标签记录。
// 任何一个 ID 不属于该用户都会整体拒绝。
func (s *Server) resolveTags(c *gin.Context, userID uint, ids []uint) ([]model.Tag, bool) {
	tags, err := s.catalog.TagsByIDs(c.Request.Context(), userID, ids)
	if err != nil {
		s.logger.Error("load tags failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load tags failed"})
		return nil, false
	}
	if len(tags) != len(ids) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tag id"})
		return nil, false
	}
	return tags, true
}

func (s *Server) resolveIngredients(c *gin.Context, userID uint, ids []uint) ([]model.Ingredient, bool) {
	ingredients, err := s.catalog.IngredientsByIDs(c.Request.Context(), userID, ids)
	if err != nil {
		s.logger.Error("load ingredients failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load ingredients failed"})
		return nil, false
	}
	if len(ingredients) != len(ids) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown ingredient id"})
		return nil, false
	}
	return ingredients, true
}

// handleListRecipes 返回当前用户的菜谱，按 ID 倒序。
//
// GET /recipe/recipes?tags=1,2&ingredients=3
func (s *Server) handleListRecipes(c *gin.Context) {
	userID := middleware.UserID(c)

	tagIDs, err := parseIDList(c.Query("tags"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tags filter"})
		return
	}
	ingredientIDs, err := parseIDList(c.Query("ingredients"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ingredients filter"})
		return
	}

	recipes, err := s.catalog.ListRecipes(c.Request.Context(), userID, RecipeFilter{
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		s.logger.Error("list recipes failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list recipes failed"})
		return
	}
	c.JSON(http.StatusOK, newRecipeResponses(recipes))
}

// handleCreateRecipe 为当前用户创建菜谱。
//
// POST /recipe/recipes
func (s *Server) handleCreateRecipe(c *gin.Context) {
	userID := middleware.UserID(c)
	var req recipeWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, ok := s.resolveTags(c, userID, req.Tags)
	if !ok {
		return
	}
	ingredients, ok := s.resolveIngredients(c, userID, req.Ingredients)
	if !ok {
		return
	}

	recipe := model.Recipe{
		UserID:      userID,
		Title:       req.Title,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Link:        req.Link,
		Tags:        tags,
		Ingredients: ingredients,
	}
	if err := s.catalog.CreateRecipe(c.Request.Context(), &recipe); err != nil {
		s.logger.Error("create recipe failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create recipe failed"})
		return
	}

	metrics.RecipeCreatedTotal.Inc()
	c.JSON(http.StatusCreated, newRecipeResponse(&recipe))
}

// handleGetRecipe 返回单个菜谱的详情表示。
//
// GET /recipe/recipes/:id
func (s *Server) handleGetRecipe(c *gin.Context) {
	userID := middleware.UserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	recipe, err := s.catalog.GetRecipe(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		}
		s.logger.Error("load recipe failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load recipe failed"})
		return
	}
	c.JSON(http.StatusOK, newRecipeDetailResponse(recipe))
}

// handleReplaceRecipe 整体替换菜谱；请求中省略的关联会被清空。
//
// PUT /recipe/recipes/:id
func (s *Server) handleReplaceRecipe(c *gin.Context) {
	userID := middleware.UserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req recipeWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, ok := s.resolveTags(c, userID, req.Tags)
	if !ok {
		return
	}
	ingredients, ok := s.resolveIngredients(c, userID, req.Ingredients)
	if !ok {
		return
	}

	fields := map[string]interface{}{
		"title":        req.Title,
		"time_minutes": req.TimeMinutes,
		"price":        req.Price,
		"link":         req.Link,
	}
	recipe, err := s.catalog.UpdateRecipe(c.Request.Context(), userID, id, fields, &tags, &ingredients)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		}
		s.logger.Error("update recipe failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update recipe failed"})
		return
	}
	c.JSON(http.StatusOK, newRecipeResponse(recipe))
}

// handlePatchRecipe 部分更新菜谱；只改动请求中出现的字段。
//
// PATCH /recipe/recipes/:id
func (s *Server) handlePatchRecipe(c *gin.Context) {
	userID := middleware.UserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req recipePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := make(map[string]interface{})
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
			return
		}
		fields["title"] = *req.Title
	}
	if req.TimeMinutes != nil {
		fields["time_minutes"] = *req.TimeMinutes
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.Link != nil {
		fields["link"] = *req.Link
	}

	var tags *[]model.Tag
	if req.Tags != nil {
		resolved, ok := s.resolveTags(c, userID, *req.Tags)
		if !ok {
			return
		}
		tags = &resolved
	}
	var ingredients *[]model.Ingredient
	if req.Ingredients != nil {
		resolved, ok := s.resolveIngredients(c, userID, *req.Ingredients)
		if !ok {
			return
		}
		ingredients = &resolved
	}

	if len(fields) == 0 && tags == nil && ingredients == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no updates provided"})
		return
	}

	recipe, err := s.catalog.UpdateRecipe(c.Request.Context(), userID, id, fields, tags, ingredients)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		}
		s.logger.Error("update recipe failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update recipe failed"})
		return
	}
	c.JSON(http.StatusOK, newRecipeResponse(recipe))
}

// handleDeleteRecipe 删除菜谱并清理其图片文件。
//
// DELETE /recipe/recipes/:id
func (s *Server) handleDeleteRecipe(c *gin.Context) {
	userID := middleware.UserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	recipe, err := s.catalog.DeleteRecipe(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		}
		s.logger.Error("delete recipe failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete recipe failed"})
		return
	}
	if recipe.Image != "" {
		if err := s.images.Remove(recipe.Image); err != nil {
			s.logger.Warn("remove recipe image failed",
				slog.String("image", recipe.Image), slog.String("error", err.Error()))
		}
	}
	c.Status(http.StatusNoContent)
}

// handleUploadImage 上传菜谱图片。
//
// 新图片先落盘并校验，数据库更新成功后才删除旧图片；
// 任何一步失败都不会破坏已有图片。
//
// POST /recipe/recipes/:id/upload-image
func (s *Server) handleUploadImage(c *gin.Context) {
	userID := middleware.UserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	recipe, err := s.catalog.GetRecipe(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		}
		s.logger.Error("load recipe failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load recipe failed"})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	stored, err := s.images.Save(file)
	if err != nil {
		if errors.Is(err, storage.ErrNotImage) {
			metrics.ImageUploadRejectedTotal.Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload is not an image"})
			return
		}
		s.logger.Error("store image failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store image failed"})
		return
	}

	old, err := s.catalog.SetRecipeImage(c.Request.Context(), userID, id, stored)
	if err != nil {
		// 行更新失败时回收刚写入的文件，避免孤儿图片
		if rmErr := s.images.Remove(stored); rmErr != nil {
			s.logger.Warn("remove orphan image failed", slog.String("error", rmErr.Error()))
		}
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		}
		s.logger.Error("update recipe image failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update recipe image failed"})
		return
	}
	if old != "" && old != stored {
		if err := s.images.Remove(old); err != nil {
			s.logger.Warn("remove old image failed",
				slog.String("image", old), slog.String("error", err.Error()))
		}
	}

	metrics.ImageUploadedTotal.Inc()
	recipe.Image = stored
	c.JSON(http.StatusOK, newRecipeResponse(recipe))
}
