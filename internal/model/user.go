package model

import "time"

// User 表示系统用户。
type User struct {
	ID          uint   `gorm:"primaryKey"`                             // 用户 ID
	Email       string `gorm:"type:varchar(191);uniqueIndex;not null"` // 邮箱（唯一，域名部分统一小写）
	Password    string `gorm:"not null"`                               // bcrypt 哈希
	Name        string `gorm:"type:varchar(191)"`                      // 显示名称
	IsActive    bool   `gorm:"default:true"`                           // 是否可登录
	IsStaff     bool   `gorm:"default:false"`                          // 是否后台人员
	IsSuperuser bool   `gorm:"default:false"`                          // 是否超级用户
	CreatedAt   time.Time

	Tags        []Tag        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Ingredients []Ingredient `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipes     []Recipe     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// AuthToken 表示用户与不透明令牌的一对一绑定。
//
// 每个用户至多一行；重复签发返回已有令牌，登出时删除该行。
type AuthToken struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex;not null"`                  // 所属用户 ID
	Token     string `gorm:"type:varchar(64);uniqueIndex;not null"` // 40 位十六进制令牌
	CreatedAt time.Time
}
