// Package i18n localizes the short user-facing error messages returned by
// the HTTP service.
package i18n

import (
	"golang.org/x/text/language"
)

type Key string

const (
	InvalidRequest Key = "invalid_request"
	Unauthorized   Key = "unauthorized"
	Forbidden      Key = "forbidden"
	NotFound       Key = "not_found"
	RateLimited    Key = "rate_limited"
	Internal       Key = "internal"
	TooLarge       Key = "too_large"
)

var supported = []language.Tag{language.English, language.SimplifiedChinese}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]map[Key]string{
	language.English: {
		InvalidRequest: "invalid request",
		Unauthorized:   "unauthorized",
		Forbidden:      "you do not have access to this conversation",
		NotFound:       "not found",
		RateLimited:    "too many messages, slow down",
		Internal:       "something went wrong, please retry",
		TooLarge:       "upload is too large",
	},
	language.SimplifiedChinese: {
		InvalidRequest: "请求无效",
		Unauthorized:   "未登录",
		Forbidden:      "无权访问该会话",
		NotFound:       "未找到",
		RateLimited:    "发送过于频繁，请稍后再试",
		Internal:       "服务异常，请稍后重试",
		TooLarge:       "上传文件过大",
	},
}

// Match picks the best supported language for an Accept-Language header.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// T returns the message for key in the language negotiated from
// acceptLanguage, falling back to English.
func T(acceptLanguage string, key Key) string {
	if msg, ok := catalog[Match(acceptLanguage)][key]; ok {
		return msg
	}
	return catalog[language.English][key]
}
