package service

import (
	"botforge_backend/internal/model"
	"encoding/json"
	"fmt"
	"strings"
)

// 提交给工厂后端的提示词上限（字符数，含历史头部）
const maxPromptLength = 9000

const (
	promptHistoryHeader = "Conversation history:\n"
	promptCurrentHeader = "--- Current Message ---\n"
	promptPlaceholder   = "N/A"
	fileUploadPrompt    = "File upload"
)

// formatHistoryEntry 单条历史的提示词片段。空的问答用占位符补齐，
// 带附件时追加文件名列表。
func formatHistoryEntry(n int, rec model.ConversationRecord) string {
	prompt := rec.Prompt
	if prompt == "" {
		prompt = promptPlaceholder
	}
	response := rec.Response
	if response == "" {
		response = promptPlaceholder
	}

	entry := fmt.Sprintf("--- Message %d ---\nUser: %s\nBot: %s\n", n, prompt, response)
	if len(rec.Files) > 0 {
		names, _ := json.Marshal([]string(rec.Files))
		entry += fmt.Sprintf("Files: %s\n", names)
	}
	return entry
}

// BuildCreationPrompt 把会话历史和本次提交拼装成创建提示词。
// 历史按时间正序编号，超出预算时从最旧的开始丢弃，
// 保留能放下的最新后缀；当前消息段不参与预算，始终附加。
func BuildCreationPrompt(history []model.ConversationRecord, message string, fileNames []string) string {
	// 逐步扩大丢弃窗口直到剩余历史放得下
	var body string
	for start := 0; start <= len(history); start++ {
		var b strings.Builder
		for i, rec := range history[start:] {
			b.WriteString(formatHistoryEntry(i+1, rec))
		}
		if len(promptHistoryHeader)+b.Len() < maxPromptLength {
			body = b.String()
			break
		}
	}

	current := message
	if current == "" {
		current = fileUploadPrompt
	}

	var b strings.Builder
	b.WriteString(promptHistoryHeader)
	b.WriteString(body)
	b.WriteString(promptCurrentHeader)
	fmt.Fprintf(&b, "User: %s\n", current)
	if len(fileNames) > 0 {
		names, _ := json.Marshal(fileNames)
		fmt.Fprintf(&b, "Files: %s\n", names)
	}
	return b.String()
}
