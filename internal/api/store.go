package api

import (
	"context"
	"errors"
	"fmt"

	"recipebox/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound 表示记录不存在或不属于当前用户。
// 跨用户访问与不存在不可区分，避免泄露他人记录的存在性。
var ErrNotFound = errors.New("record not found")

// RecipeFilter 菜谱列表的可选过滤条件。
type RecipeFilter struct {
	TagIDs        []uint // 至少命中其中一个标签
	IngredientIDs []uint // 至少命中其中一个原料
}

// CatalogStore 定义菜谱目录的存取接口。
//
// 所有查询都以 userID 为前置条件：任何客户端参数都不能放宽归属过滤。
type CatalogStore interface {
	ListTags(ctx context.Context, userID uint, assignedOnly bool) ([]model.Tag, error)
	CreateTag(ctx context.Context, tag *model.Tag) error
	TagsByIDs(ctx context.Context, userID uint, ids []uint) ([]model.Tag, error)

	ListIngredients(ctx context.Context, userID uint, assignedOnly bool) ([]model.Ingredient, error)
	CreateIngredient(ctx context.Context, ingredient *model.Ingredient) error
	IngredientsByIDs(ctx context.Context, userID uint, ids []uint) ([]model.Ingredient, error)

	ListRecipes(ctx context.Context, userID uint, filter RecipeFilter) ([]model.Recipe, error)
	GetRecipe(ctx context.Context, userID, id uint) (*model.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	// UpdateRecipe 更新字段并按需替换关联集合。
	// tags/ingredients 为 nil 表示保持不变，指向空切片表示清空。
	UpdateRecipe(ctx context.Context, userID, id uint, fields map[string]interface{}, tags *[]model.Tag, ingredients *[]model.Ingredient) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, id uint) (*model.Recipe, error)
	// SetRecipeImage 更新图片文件名并返回之前的文件名。
	SetRecipeImage(ctx context.Context, userID, id uint, image string) (string, error)
}

type dbCatalogStore struct {
	db *gorm.DB
}

func (s dbCatalogStore) ListTags(ctx context.Context, userID uint, assignedOnly bool) ([]model.Tag, error) {
	q := s.db.WithContext(ctx).Model(&model.Tag{}).Where("tags.user_id = ?", userID)
	if assignedOnly {
		q = q.Joins("JOIN recipe_tags ON recipe_tags.tag_id = tags.id").
			Joins("JOIN recipes ON recipes.id = recipe_tags.recipe_id").
			Where("recipes.user_id = ?", userID).
			Distinct("tags.*")
	}
	var tags []model.Tag
	if err := q.Order("tags.name DESC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func (s dbCatalogStore) CreateTag(ctx context.Context, tag *model.Tag) error {
	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

func (s dbCatalogStore) TagsByIDs(ctx context.Context, userID uint, ids []uint) ([]model.Tag, error) {
	if len(ids) == 0 {
		return []model.Tag{}, nil
	}
	var tags []model.Tag
	if err := s.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	return tags, nil
}

func (s dbCatalogStore) ListIngredients(ctx context.Context, userID uint, assignedOnly bool) ([]model.Ingredient, error) {
	q := s.db.WithContext(ctx).Model(&model.Ingredient{}).Where("ingredients.user_id = ?", userID)
	if assignedOnly {
		q = q.Joins("JOIN recipe_ingredients ON recipe_ingredients.ingredient_id = ingredients.id").
			Joins("JOIN recipes ON recipes.id = recipe_ingredients.recipe_id").
			Where("recipes.user_id = ?", userID).
			Distinct("ingredients.*")
	}
	var ingredients []model.Ingredient
	if err := q.Order("ingredients.name DESC").Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	return ingredients, nil
}

func (s dbCatalogStore) CreateIngredient(ctx context.Context, ingredient *model.Ingredient) error {
	if err := s.db.WithContext(ctx).Create(ingredient).Error; err != nil {
		return fmt.Errorf("create ingredient: %w", err)
	}
	return nil
}

func (s dbCatalogStore) IngredientsByIDs(ctx context.Context, userID uint, ids []uint) ([]model.Ingredient, error) {
	if len(ids) == 0 {
		return []model.Ingredient{}, nil
	}
	var ingredients []model.Ingredient
	if err := s.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	return ingredients, nil
}

func (s dbCatalogStore) ListRecipes(ctx context.Context, userID uint, filter RecipeFilter) ([]model.Recipe, error) {
	q := s.db.WithContext(ctx).Model(&model.Recipe{}).
		Preload("Tags").
		Preload("Ingredients").
		Where("recipes.user_id = ?", userID)

	if len(filter.TagIDs) > 0 {
		q = q.Joins("JOIN recipe_tags ON recipe_tags.recipe_id = recipes.id").
			Where("recipe_tags.tag_id IN ?", filter.TagIDs)
	}
	if len(filter.IngredientIDs) > 0 {
		q = q.Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = recipes.id").
			Where("recipe_ingredients.ingredient_id IN ?", filter.IngredientIDs)
	}
	// 一个菜谱命中多个过滤值时只出现一次
	if len(filter.TagIDs) > 0 || len(filter.IngredientIDs) > 0 {
		q = q.Distinct("recipes.*")
	}

	var recipes []model.Recipe
	if err := q.Order("recipes.id DESC").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

func (s dbCatalogStore) GetRecipe(ctx context.Context, userID, id uint) (*model.Recipe, error) {
	var recipe model.Recipe
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Preload("Ingredients").
		Where("id = ? AND user_id = ?", id, userID).
		First(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load recipe: %w", err)
	}
	return &recipe, nil
}

func (s dbCatalogStore) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return fmt.Errorf("create recipe: %w", err)
	}
	return nil
}

func (s dbCatalogStore) UpdateRecipe(ctx context.Context, userID, id uint, fields map[string]interface{}, tags *[]model.Tag, ingredients *[]model.Ingredient) (*model.Recipe, error) {
	var recipe model.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&recipe).Error; err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := tx.Model(&recipe).Updates(fields).Error; err != nil {
				return err
			}
		}
		if tags != nil {
			assoc := tx.Model(&recipe).Association("Tags")
			if len(*tags) == 0 {
				if err := assoc.Clear(); err != nil {
					return err
				}
			} else if err := assoc.Replace(*tags); err != nil {
				return err
			}
		}
		if ingredients != nil {
			assoc := tx.Model(&recipe).Association("Ingredients")
			if len(*ingredients) == 0 {
				if err := assoc.Clear(); err != nil {
					return err
				}
			} else if err := assoc.Replace(*ingredients); err != nil {
				return err
			}
		}
		return tx.Preload("Tags").Preload("Ingredients").First(&recipe, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update recipe: %w", err)
	}
	return &recipe, nil
}

func (s dbCatalogStore) DeleteRecipe(ctx context.Context, userID, id uint) (*model.Recipe, error) {
	var recipe model.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Ingredients").Clear(); err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete recipe: %w", err)
	}
	return &recipe, nil
}

func (s dbCatalogStore) SetRecipeImage(ctx context.Context, userID, id uint, image string) (string, error) {
	var recipe model.Recipe
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("load recipe: %w", err)
	}
	old := recipe.Image
	if err := s.db.WithContext(ctx).Model(&recipe).Update("image", image).Error; err != nil {
		return "", fmt.Errorf("update recipe image: %w", err)
	}
	return old, nil
}
