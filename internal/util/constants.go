package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 附件相关常量
const (
	MimePDF         = "application/pdf"
	MimeText        = "text/plain"
	MimeOctetStream = "application/octet-stream"
)
