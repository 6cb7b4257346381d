package service

import (
	"botforge_backend/internal/model"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCreationPromptEmptyHistory(t *testing.T) {
	prompt := BuildCreationPrompt(nil, "hello", nil)

	assert.Equal(t, "Conversation history:\n--- Current Message ---\nUser: hello\n", prompt)
}

func TestBuildCreationPromptWithHistory(t *testing.T) {
	history := []model.ConversationRecord{
		{Prompt: "first question", Response: "first answer"},
		{Prompt: "second question", Response: "", Files: model.FileList{"notes.txt"}},
	}

	prompt := BuildCreationPrompt(history, "third question", nil)

	assert.Contains(t, prompt, "--- Message 1 ---\nUser: first question\nBot: first answer\n")
	assert.Contains(t, prompt, "--- Message 2 ---\nUser: second question\nBot: N/A\nFiles: [\"notes.txt\"]\n")
	assert.Contains(t, prompt, "--- Current Message ---\nUser: third question\n")
	assert.True(t, strings.HasPrefix(prompt, "Conversation history:\n"))
}

func TestBuildCreationPromptFileOnlySubmission(t *testing.T) {
	prompt := BuildCreationPrompt(nil, "", []string{"a.pdf", "b.txt"})

	assert.Contains(t, prompt, "--- Current Message ---\nUser: File upload\n")
	assert.Contains(t, prompt, "Files: [\"a.pdf\",\"b.txt\"]\n")
}

func TestBuildCreationPromptDropsOldestFirst(t *testing.T) {
	long := strings.Repeat("x", 6000)
	history := []model.ConversationRecord{
		{Prompt: long, Response: "old answer"},
		{Prompt: "recent question", Response: "recent answer"},
	}

	prompt := BuildCreationPrompt(history, "now", nil)

	// 两条放不下时丢最旧的，保留的那条重新从 1 编号
	assert.NotContains(t, prompt, long)
	assert.Contains(t, prompt, "--- Message 1 ---\nUser: recent question\nBot: recent answer\n")
	assert.Contains(t, prompt, "--- Current Message ---\nUser: now\n")
}

func TestBuildCreationPromptKeepsEverythingUnderBudget(t *testing.T) {
	history := []model.ConversationRecord{
		{Prompt: "q1", Response: "a1"},
		{Prompt: "q2", Response: "a2"},
	}

	prompt := BuildCreationPrompt(history, "q3", nil)

	assert.Contains(t, prompt, "--- Message 1 ---\nUser: q1\nBot: a1\n")
	assert.Contains(t, prompt, "--- Message 2 ---\nUser: q2\nBot: a2\n")
}

func TestBuildCreationPromptCurrentAlwaysIncluded(t *testing.T) {
	// 历史整体超预算也不影响当前消息段
	var history []model.ConversationRecord
	for i := 0; i < 5; i++ {
		history = append(history, model.ConversationRecord{
			Prompt:   strings.Repeat("p", 3000),
			Response: strings.Repeat("r", 3000),
		})
	}

	prompt := BuildCreationPrompt(history, "the latest", nil)

	assert.Contains(t, prompt, "--- Current Message ---\nUser: the latest\n")
}
