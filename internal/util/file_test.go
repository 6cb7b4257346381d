package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectAttachmentType(t *testing.T) {
	mimeType, err := DetectAttachmentType("notes.txt", []byte("plain text content"))
	assert.NoError(t, err)
	assert.Contains(t, mimeType, MimeText)

	mimeType, err = DetectAttachmentType("doc.pdf", []byte("%PDF-1.4 fake header"))
	assert.NoError(t, err)
	assert.Equal(t, MimePDF, mimeType)

	// 嗅探不出类型时退回扩展名判断
	mimeType, err = DetectAttachmentType("binary.pdf", []byte{0x00, 0x01, 0x02, 0x03})
	assert.NoError(t, err)
	assert.Equal(t, MimePDF, mimeType)

	// 音频既不匹配类型也不匹配扩展名
	_, err = DetectAttachmentType("track.mp3", []byte{0xFF, 0xFB, 0x90, 0x00})
	assert.ErrorIs(t, err, ErrInvalidFileType)
}
