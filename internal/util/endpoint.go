package util

import "strings"

const apiPrefix = "/api/v1"

// CleanEndpoint 修复机器人端点 URL 中 /api/v1 前缀被重复拼接的缺陷，
// 保留第一份前缀，循环剔除后续重复，因此对任意输入幂等。
func CleanEndpoint(link string) string {
	doubled := apiPrefix + apiPrefix + "/"
	for {
		idx := strings.Index(link, doubled)
		if idx < 0 {
			return link
		}
		link = link[:idx+len(apiPrefix)] + link[idx+len(doubled)-1:]
	}
}

// TrimEndpointPath 去掉工厂后端返回的端点路径上多余的 /api/v1 前缀，
// 便于与 base URL 拼接出完整端点。
func TrimEndpointPath(path string) string {
	if strings.HasPrefix(path, apiPrefix) {
		return path[len(apiPrefix):]
	}
	return path
}
