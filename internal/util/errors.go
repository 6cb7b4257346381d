package util

import "errors"

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrSessionRequired  = errors.New("session id is required")
	ErrEndpointRequired = errors.New("api endpoint is required")
	ErrEmptySubmission  = errors.New("please enter a message or upload at least one file")
	ErrInvalidFileType  = errors.New("please upload only PDF or TXT files")
	ErrInvalidMode      = errors.New("invalid chatbot mode")
	ErrInvalidScope     = errors.New("unknown conversation variant")
)
