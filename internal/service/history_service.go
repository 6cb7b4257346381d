package service

import (
	"botforge_backend/internal/model"
	"sort"
	"time"
)

// 总览默认先取最近 10 条，前端“加载更多”每次再扩 10 条
const (
	DefaultFeedLimit = 10
	FeedStep         = 10
)

// SessionGroup 按会话聚合的历史分组
type SessionGroup struct {
	SessionID string                     `json:"sessionId"`
	Title     string                     `json:"title"`
	Count     int                        `json:"count"`
	StartedAt time.Time                  `json:"startedAt"`
	UpdatedAt time.Time                  `json:"updatedAt"`
	Records   []model.ConversationRecord `json:"records"`
}

// BotGroup 按机器人接口聚合的侧栏分组
type BotGroup struct {
	APILink string                     `json:"apiLink"`
	Label   string                     `json:"label"`
	Count   int                        `json:"count"`
	Records []model.ConversationRecord `json:"records"`
}

// HistoryService 聚合历史视图：会话分组、机器人分组、对话回放
type HistoryService struct {
	Conversations *ConversationService
}

func NewHistoryService(conversations *ConversationService) *HistoryService {
	return &HistoryService{Conversations: conversations}
}

// NormalizeFeedLimit 归一化总览的取数上限：非正数取默认值
func NormalizeFeedLimit(limit int) int {
	if limit <= 0 {
		return DefaultFeedLimit
	}
	return limit
}

// SessionGroups 会话分组总览。
// 先按时间倒序截取记录，再按会话归组；
// 分组之间按各自最早一条记录的时间倒序排列，
// 标题取该会话最早的提问。
func (s *HistoryService) SessionGroups(userID uint, limit int) ([]SessionGroup, error) {
	records, err := s.Conversations.SessionFeed(userID, NormalizeFeedLimit(limit))
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	groups := make([]SessionGroup, 0)
	for _, rec := range records {
		i, ok := index[rec.SessionID]
		if !ok {
			index[rec.SessionID] = len(groups)
			groups = append(groups, SessionGroup{
				SessionID: rec.SessionID,
				StartedAt: rec.CreatedAt,
				UpdatedAt: rec.CreatedAt,
			})
			i = len(groups) - 1
		}
		g := &groups[i]
		g.Records = append(g.Records, rec)
		g.Count++
		// 记录按倒序进来，最后看到的就是该会话最早的一条
		if !rec.CreatedAt.After(g.StartedAt) {
			g.StartedAt = rec.CreatedAt
			g.Title = rec.Prompt
		}
		if rec.CreatedAt.After(g.UpdatedAt) {
			g.UpdatedAt = rec.CreatedAt
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].StartedAt.After(groups[b].StartedAt)
	})
	return groups, nil
}

// BotGroups 机器人分组总览。
// 侧栏镜像按时间正序取出，按接口地址归组并保持首次出现的顺序，
// 分组标签取该机器人名下的第一条提问。
func (s *HistoryService) BotGroups(userID uint) ([]BotGroup, error) {
	records, err := s.Conversations.SidebarRecords(userID)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	groups := make([]BotGroup, 0)
	for _, rec := range records {
		i, ok := index[rec.APILink]
		if !ok {
			index[rec.APILink] = len(groups)
			groups = append(groups, BotGroup{
				APILink: rec.APILink,
				Label:   rec.Prompt,
			})
			i = len(groups) - 1
		}
		groups[i].Records = append(groups[i].Records, rec)
		groups[i].Count++
	}
	return groups, nil
}

// Transcript 把某个机器人接口下的记录展开成逐条消息的对话回放。
// 每条记录展开为一问一答，整体按时间排序；
// 时间相同的保持原有先后，同一条记录内提问先于回答。
func (s *HistoryService) Transcript(userID uint, apiLink string) ([]model.TranscriptMessage, error) {
	records, err := s.Conversations.EndpointTranscript(userID, apiLink)
	if err != nil {
		return nil, err
	}

	messages := make([]model.TranscriptMessage, 0, len(records)*2)
	for _, rec := range records {
		messages = append(messages, model.TranscriptMessage{
			Role:      "user",
			Content:   rec.Prompt,
			CreatedAt: rec.CreatedAt,
		})
		messages = append(messages, model.TranscriptMessage{
			Role:      "bot",
			Content:   rec.Response,
			CreatedAt: rec.CreatedAt,
		})
	}

	sort.SliceStable(messages, func(a, b int) bool {
		return messages[a].CreatedAt.Before(messages[b].CreatedAt)
	})
	return messages, nil
}
