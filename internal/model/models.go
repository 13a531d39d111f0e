package model

import (
	"time"
)

// Tag 表示菜谱标签（如 "Vegan"、"Dessert"）。
//
// 标签归属于单个用户；不同用户可以拥有同名标签。
type Tag struct {
	ID        uint      `gorm:"primaryKey"` // 标签唯一标识
	CreatedAt time.Time // 创建时间

	UserID uint   `gorm:"not null;index"` // 所属用户 ID
	Name   string `gorm:"type:varchar(191);not null"` // 标签名称

	Recipes []Recipe `gorm:"many2many:recipe_tags"` // 关联的菜谱列表
}

// String 返回标签名称。
func (t Tag) String() string { return t.Name }

// Ingredient 表示菜谱原料（如 "Salt"、"Kale"）。
type Ingredient struct {
	ID        uint      `gorm:"primaryKey"` // 原料唯一标识
	CreatedAt time.Time // 创建时间

	UserID uint   `gorm:"not null;index"` // 所属用户 ID
	Name   string `gorm:"type:varchar(191);not null"` // 原料名称

	Recipes []Recipe `gorm:"many2many:recipe_ingredients"` // 关联的菜谱列表
}

// String 返回原料名称。
func (i Ingredient) String() string { return i.Name }

// Recipe 表示一份菜谱。
//
// 菜谱归属于单个用户，与标签、原料是多对多关系
// （通过 recipe_tags / recipe_ingredients 表关联）。
type Recipe struct {
	ID        uint      `gorm:"primaryKey"` // 菜谱唯一标识
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	UserID      uint    `gorm:"not null;index"`              // 所属用户 ID
	Title       string  `gorm:"type:varchar(191);not null"`  // 标题
	TimeMinutes int     `gorm:"not null"`                    // 烹饪时长（分钟）
	Price       float64 `gorm:"type:decimal(8,2);not null"`  // 预估花费
	Link        string  `gorm:"type:varchar(255)"`           // 外部链接（可选）
	Image       string  `gorm:"type:varchar(255)"`           // 已上传图片的存储文件名（可选）

	Tags        []Tag        `gorm:"many2many:recipe_tags"`        // 关联的标签列表
	Ingredients []Ingredient `gorm:"many2many:recipe_ingredients"` // 关联的原料列表
}

// String 返回菜谱标题。
func (r Recipe) String() string { return r.Title }
