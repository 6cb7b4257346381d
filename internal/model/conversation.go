package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ScopeKind 会话记录的归档维度：同一条记录结构按三种视图落库
type ScopeKind string

const (
	ScopeSession  ScopeKind = "session"  // 按会话分组，支持多轮续聊
	ScopeEndpoint ScopeKind = "endpoint" // 按机器人实例分组，用于重建聊天记录
	ScopeSidebar  ScopeKind = "sidebar"  // 侧边栏索引，按 apiLink 分组
)

func (k ScopeKind) Valid() bool {
	switch k {
	case ScopeSession, ScopeEndpoint, ScopeSidebar:
		return true
	}
	return false
}

// FileList 以 JSON 数组形式存储的附件文件名列表
type FileList []string

func (f FileList) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	data, err := json.Marshal(f)
	return string(data), err
}

func (f *FileList) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for FileList")
	}
	if len(data) == 0 {
		*f = nil
		return nil
	}
	return json.Unmarshal(data, f)
}

// ConversationRecord 一次用户提问及其回复。只增不改的追加日志，
// createdAt 为唯一排序键。
type ConversationRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index:idx_owner_scope;not null" json:"-"`
	Scope     ScopeKind `gorm:"type:enum('session','endpoint','sidebar');index:idx_owner_scope;not null" json:"-"`
	SessionID string    `gorm:"size:36;index" json:"sessionId,omitempty"`
	Prompt    string    `gorm:"type:text" json:"prompt"`
	Response  string    `gorm:"type:text" json:"response"`
	APILink   string    `gorm:"size:512;index" json:"apiLink,omitempty"`
	Files     FileList  `gorm:"type:json" json:"files"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (ConversationRecord) TableName() string {
	return "conversation_records"
}

// TranscriptMessage 按角色展开后的单条聊天消息（端点视图用）
type TranscriptMessage struct {
	Role      string    `json:"role"` // user 或 bot
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
