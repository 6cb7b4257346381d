package repository

import (
	"botforge_backend/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const sessionCacheTTL = 24 * time.Hour

type ConversationRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewConversationRepository(db *gorm.DB, rdb *redis.Client) *ConversationRepository {
	return &ConversationRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

// Insert 追加一条会话记录。createdAt 由服务端在落库时赋值，记录创建后不再变更。
func (r *ConversationRepository) Insert(rec *model.ConversationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if err := r.DB.Create(rec).Error; err != nil {
		return err
	}

	// 每次写入都使对应会话的缓存失效，缓存永远不是事实来源
	if rec.Scope == model.ScopeSession && rec.SessionID != "" {
		r.invalidateSession(rec.UserID, rec.SessionID)
	}
	return nil
}

func (r *ConversationRepository) sessionCacheKey(userID uint, sessionID string) string {
	return fmt.Sprintf("conv:cache:%d:%s", userID, sessionID)
}

func (r *ConversationRepository) invalidateSession(userID uint, sessionID string) {
	if r.Redis == nil {
		return
	}
	r.Redis.Del(r.ctx, r.sessionCacheKey(userID, sessionID))
}

// Query 查询条件。UserID 必填：所有查询都强制按属主过滤，
// 其余字段为空表示不限制。
type Query struct {
	UserID    uint
	Scope     model.ScopeKind
	SessionID string
	APILink   string
	Ascending bool
	Limit     int
}

// Find 按属主检索会话记录。排序仅以 created_at 为键，
// 时间戳相同时保持存储层返回的自然顺序。
func (r *ConversationRepository) Find(q Query) ([]model.ConversationRecord, error) {
	db := r.DB.Where("user_id = ? AND scope = ?", q.UserID, q.Scope)

	if q.SessionID != "" {
		db = db.Where("session_id = ?", q.SessionID)
	}
	if q.APILink != "" {
		db = db.Where("api_link = ?", q.APILink)
	}

	order := "created_at DESC"
	if q.Ascending {
		order = "created_at ASC"
	}
	db = db.Order(order)

	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var records []model.ConversationRecord
	err := db.Find(&records).Error
	return records, err
}

// FindSessionTranscript 会话正序记录，走 Redis 读穿缓存
func (r *ConversationRepository) FindSessionTranscript(userID uint, sessionID string) ([]model.ConversationRecord, error) {
	key := r.sessionCacheKey(userID, sessionID)

	if r.Redis != nil {
		cached, err := r.Redis.Get(r.ctx, key).Result()
		if err == nil && cached != "" {
			var records []model.ConversationRecord
			if err := json.Unmarshal([]byte(cached), &records); err == nil {
				return records, nil
			}
		}
	}

	records, err := r.Find(Query{
		UserID:    userID,
		Scope:     model.ScopeSession,
		SessionID: sessionID,
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}

	if r.Redis != nil {
		if data, err := json.Marshal(records); err == nil {
			r.Redis.Set(r.ctx, key, data, sessionCacheTTL)
		}
	}
	return records, nil
}
