package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipebox/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLen 密码最小长度。
const MinPasswordLen = 5

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrEmailTaken         = errors.New("email already exists")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("user not found")
)

// Store 定义账户存取接口。
type Store interface {
	// CreateUser 创建普通用户。邮箱为空返回 ErrEmailRequired，
	// 已存在返回 ErrEmailTaken，密码过短返回 ErrPasswordTooShort。
	CreateUser(ctx context.Context, email, password, name string) (*model.User, error)
	// CreateSuperuser 创建超级用户（IsStaff/IsSuperuser 恒为 true）。
	CreateSuperuser(ctx context.Context, email, password string) (*model.User, error)
	// Authenticate 按邮箱查找用户并校验密码，失败返回 ErrInvalidCredentials。
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	// GetByID 按 ID 查找用户，不存在返回 ErrNotFound。
	GetByID(ctx context.Context, id uint) (*model.User, error)
	// UpdateProfile 更新显示名称与密码（nil 字段保持不变，密码会重新哈希）。
	UpdateProfile(ctx context.Context, id uint, name, password *string) (*model.User, error)
}

// NormalizeEmail 规范化邮箱地址：去除首尾空白，将域名部分统一小写。
// 本地部分（@ 之前）保持原样。
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// HashPassword 对明文密码做 bcrypt 哈希。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 校验明文密码与存储的哈希是否匹配。
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GormStore 基于 gorm 的账户存储实现。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建账户存储。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateUser(ctx context.Context, email, password, name string) (*model.User, error) {
	return s.create(ctx, email, password, name, false)
}

func (s *GormStore) CreateSuperuser(ctx context.Context, email, password string) (*model.User, error) {
	return s.create(ctx, email, password, "", true)
}

func (s *GormStore) create(ctx context.Context, email, password, name string, super bool) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(password) < MinPasswordLen {
		return nil, ErrPasswordTooShort
	}

	var existing model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("query user: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Email:       email,
		Password:    hash,
		Name:        name,
		IsActive:    true,
		IsStaff:     super,
		IsSuperuser: super,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)

	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *GormStore) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) UpdateProfile(ctx context.Context, id uint, name, password *string) (*model.User, error) {
	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if password != nil {
		if len(*password) < MinPasswordLen {
			return nil, ErrPasswordTooShort
		}
		hash, err := HashPassword(*password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hash
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}
