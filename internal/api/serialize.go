package api

import (
	"recipebox/internal/model"
	"recipebox/internal/storage"
)

// 对外表示的约定：列表与写操作返回关联的 ID 引用，
// 详情接口返回嵌套的标签与原料对象。

type tagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type ingredientResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// recipeResponse 列表 / 创建 / 更新使用的菜谱表示，关联以 ID 引用。
type recipeResponse struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	TimeMinutes int     `json:"time_minutes"`
	Price       float64 `json:"price"`
	Link        string  `json:"link"`
	Tags        []uint  `json:"tags"`
	Ingredients []uint  `json:"ingredients"`
	Image       string  `json:"image"`
}

// recipeDetailResponse 详情接口使用的菜谱表示，关联内嵌完整对象。
type recipeDetailResponse struct {
	ID          uint                 `json:"id"`
	Title       string               `json:"title"`
	TimeMinutes int                  `json:"time_minutes"`
	Price       float64              `json:"price"`
	Link        string               `json:"link"`
	Tags        []tagResponse        `json:"tags"`
	Ingredients []ingredientResponse `json:"ingredients"`
	Image       string               `json:"image"`
}

func newTagResponse(t model.Tag) tagResponse {
	return tagResponse{ID: t.ID, Name: t.Name}
}

func newTagResponses(tags []model.Tag) []tagResponse {
	out := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, newTagResponse(t))
	}
	return out
}

func newIngredientResponse(i model.Ingredient) ingredientResponse {
	return ingredientResponse{ID: i.ID, Name: i.Name}
}

func newIngredientResponses(ingredients []model.Ingredient) []ingredientResponse {
	out := make([]ingredientResponse, 0, len(ingredients))
	for _, i := range ingredients {
		out = append(out, newIngredientResponse(i))
	}
	return out
}

func newRecipeResponse(r *model.Recipe) recipeResponse {
	tagIDs := make([]uint, 0, len(r.Tags))
	for _, t := range r.Tags {
		tagIDs = append(tagIDs, t.ID)
	}
	ingredientIDs := make([]uint, 0, len(r.Ingredients))
	for _, i := range r.Ingredients {
		ingredientIDs = append(ingredientIDs, i.ID)
	}
	return recipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Tags:        tagIDs,
		Ingredients: ingredientIDs,
		Image:       storage.URLPath(r.Image),
	}
}

func newRecipeResponses(recipes []model.Recipe) []recipeResponse {
	out := make([]recipeResponse, 0, len(recipes))
	for i := range recipes {
		out = append(out, newRecipeResponse(&recipes[i]))
	}
	return out
}

func newRecipeDetailResponse(r *model.Recipe) recipeDetailResponse {
	return recipeDetailResponse{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Tags:        newTagResponses(r.Tags),
		Ingredients: newIngredientResponses(r.Ingredients),
		Image:       storage.URLPath(r.Image),
	}
}
