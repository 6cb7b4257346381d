package service

import (
	"botforge_backend/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 会话标识保留 30 天，过期后下次访问会生成新会话
const sessionBookkeepingTTL = 30 * 24 * time.Hour

// SessionService 管理每个用户当前会话的标识。
// 浏览器端的本地存储在这里对应为按用户归档的 Redis 键；
// 没有 Redis 时退化为每次生成新标识，但永不报错。
type SessionService struct {
	Redis *redis.Client
}

func NewSessionService(rdb *redis.Client) *SessionService {
	return &SessionService{Redis: rdb}
}

func (s *SessionService) key(userID uint) string {
	return fmt.Sprintf("chat:session:current:%d", userID)
}

// Current 解析当前会话标识。
// 调用方显式携带的 requested（导航参数）优先并被采纳持久化；
// 否则返回已持久化的标识；都没有则生成新标识。
// 不校验被恢复的标识是否存在记录，不存在只会得到空的历史。
func (s *SessionService) Current(ctx context.Context, userID uint, requested string) string {
	if requested != "" {
		s.persist(ctx, userID, requested)
		return requested
	}

	if s.Redis != nil {
		if stored, err := s.Redis.Get(ctx, s.key(userID)).Result(); err == nil && stored != "" {
			return stored
		}
	}

	sessionID := model.GenerateSessionID()
	s.persist(ctx, userID, sessionID)
	return sessionID
}

// Rotate 开启新会话：生成并持久化新标识
func (s *SessionService) Rotate(ctx context.Context, userID uint) string {
	sessionID := model.GenerateSessionID()
	s.persist(ctx, userID, sessionID)
	return sessionID
}

func (s *SessionService) persist(ctx context.Context, userID uint, sessionID string) {
	if s.Redis == nil {
		return
	}
	// 持久化失败不影响本次会话，下次访问重新生成即可
	s.Redis.Set(ctx, s.key(userID), sessionID, sessionBookkeepingTTL)
}
