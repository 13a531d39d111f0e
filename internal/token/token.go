package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"recipebox/internal/model"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const cacheKeyPrefix = "recipebox:token:"

// ErrInvalidToken 表示令牌不存在或已被撤销。
var ErrInvalidToken = errors.New("invalid token")

// Issuer 负责不透明令牌的签发、解析与撤销。
//
// 令牌以数据库为准（每个用户一行），Redis 仅作为解析缓存：
// 命中时无需查库，未命中回源后写入缓存，撤销时同步删除缓存。
type Issuer struct {
	db       *gorm.DB
	rdb      *redis.Client
	logger   *slog.Logger
	cacheTTL time.Duration
}

// NewIssuer 创建令牌签发器。
func NewIssuer(db *gorm.DB, rdb *redis.Client, logger *slog.Logger, cacheTTL time.Duration) *Issuer {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Issuer{
		db:       db,
		rdb:      rdb,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Issue 为用户签发令牌。
//
// 同一用户重复签发返回已有令牌（与用户 1:1 绑定，保持稳定）。
func (i *Issuer) Issue(ctx context.Context, userID uint) (string, error) {
	var existing model.AuthToken
	err := i.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return existing.Token, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("query token: %w", err)
	}

	tok, err := generateToken()
	if err != nil {
		return "", err
	}
	row := model.AuthToken{UserID: userID, Token: tok}
	if err := i.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}
	i.cacheSet(ctx, tok, userID)
	return tok, nil
}

// Resolve 将令牌解析回用户 ID，无效令牌返回 ErrInvalidToken。
func (i *Issuer) Resolve(ctx context.Context, tok string) (uint, error) {
	if tok == "" {
		return 0, ErrInvalidToken
	}

	if i.rdb != nil {
		val, err := i.rdb.Get(ctx, cacheKeyPrefix+tok).Result()
		if err == nil {
			id, parseErr := strconv.ParseUint(val, 10, 64)
			if parseErr == nil {
				return uint(id), nil
			}
		}
	}

	var row model.AuthToken
	if err := i.db.WithContext(ctx).Where("token = ?", tok).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrInvalidToken
		}
		return 0, fmt.Errorf("query token: %w", err)
	}
	i.cacheSet(ctx, row.Token, row.UserID)
	return row.UserID, nil
}

// Revoke 撤销用户的令牌（令牌不存在时视为成功）。
func (i *Issuer) Revoke(ctx context.Context, userID uint) error {
	var row model.AuthToken
	err := i.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query token: %w", err)
	}

	if err := i.db.WithContext(ctx).Delete(&row).Error; err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if i.rdb != nil {
		if err := i.rdb.Del(ctx, cacheKeyPrefix+row.Token).Err(); err != nil && i.logger != nil {
			i.logger.Warn("token cache invalidation failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (i *Issuer) cacheSet(ctx context.Context, tok string, userID uint) {
	if i.rdb == nil {
		return
	}
	key := cacheKeyPrefix + tok
	if err := i.rdb.Set(ctx, key, strconv.FormatUint(uint64(userID), 10), i.cacheTTL).Err(); err != nil && i.logger != nil {
		i.logger.Warn("token cache set failed", slog.String("error", err.Error()))
	}
}

// generateToken 生成 40 位十六进制随机令牌。
func generateToken() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
