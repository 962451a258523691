package utils

import (
	"strings"
	"time"
)

// NormalizeTitle 标题比较前统一小写并合并空白
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// StripIMDbPrefix "tt0078748" -> "0078748"
func StripIMDbPrefix(imdbID string) string {
	return strings.Replace(imdbID, "tt", "", 1)
}

// ReleaseYear 毫秒时间戳转年份，nil 时返回 0
func ReleaseYear(releaseDate *int64) int {
	if releaseDate == nil {
		return 0
	}
	return time.UnixMilli(*releaseDate).UTC().Year()
}
