package middleware

import (
	"sync"
	"time"
)

// ==================== LoginLimiter 登录限流器 ====================

// LoginLimiter 登录失败冷却限流器
// 防止对 token 接口的口令暴力尝试
type LoginLimiter struct {
	entries sync.Map // username -> *failEntry
}

// failEntry 失败记录
type failEntry struct {
	lastFail time.Time
	mu       sync.Mutex
}

// 全局限流器实例
var globalLoginLimiter = &LoginLimiter{}

// GetLoginLimiter 获取全局限流器
func GetLoginLimiter() *LoginLimiter {
	return globalLoginLimiter
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查该用户名当前是否允许尝试登录
// cooldown: 一次失败后的冷却间隔
func (l *LoginLimiter) Check(username string, cooldown time.Duration) CheckResult {
	actual, ok := l.entries.Load(username)
	if !ok {
		return CheckResult{Allowed: true}
	}
	entry := actual.(*failEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	elapsed := time.Since(entry.lastFail)
	if elapsed < cooldown {
		return CheckResult{
			Allowed:    false,
			RetryAfter: cooldown - elapsed,
		}
	}
	return CheckResult{Allowed: true}
}

// Fail 记录一次登录失败
func (l *LoginLimiter) Fail(username string) {
	actual, _ := l.entries.LoadOrStore(username, &failEntry{})
	entry := actual.(*failEntry)

	entry.mu.Lock()
	entry.lastFail = time.Now()
	entry.mu.Unlock()
}

// Reset 登录成功后清除失败记录
func (l *LoginLimiter) Reset(username string) {
	l.entries.Delete(username)
}
