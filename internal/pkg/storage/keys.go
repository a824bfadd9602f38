package storage

import "fmt"

// 固定命名空间键
const (
	AccessModeKey     = "access:mode"
	AccessWaitlistKey = "access:waitlist"
)

// UserCacheKey 用户 DTO 缓存键
func UserCacheKey(telegramID int64) string {
	return fmt.Sprintf("user:cache:%d", telegramID)
}
