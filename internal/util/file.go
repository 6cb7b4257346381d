package util

import (
	"net/http"
	"path/filepath"
	"strings"
)

// 仅接受 PDF 与纯文本附件
var allowedAttachmentTypes = []string{MimePDF, MimeText}

// DetectAttachmentType 嗅探附件内容的 MIME 类型并校验是否允许上传。
// 返回检测到的类型；不允许时返回 ErrInvalidFileType。
func DetectAttachmentType(name string, data []byte) (string, error) {
	sniff := data
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	mimeType := http.DetectContentType(sniff)

	// text/plain 检测结果带 charset 后缀
	for _, allowed := range allowedAttachmentTypes {
		if strings.HasPrefix(mimeType, allowed) {
			return mimeType, nil
		}
	}

	// 空文件或嗅探失败时退回扩展名判断
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MimePDF, nil
	case ".txt":
		return MimeText, nil
	}

	return mimeType, ErrInvalidFileType
}
