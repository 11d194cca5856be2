package bot

import (
	"sync"
	"time"
)

// RateLimiter ограничивает количество запросов чата в скользящем окне
type RateLimiter struct {
	limit    int
	window   time.Duration
	now      func() time.Time
	requests map[int64][]time.Time
	swept    time.Time
	mutex    sync.Mutex
}

// NewRateLimiter создает rate limiter на limit запросов за window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		requests: make(map[int64][]time.Time),
	}
}

// IsAllowed проверяет и учитывает запрос
func (rl *RateLimiter) IsAllowed(chatID int64) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	if now.Sub(rl.swept) >= rl.window {
		rl.sweep(now)
	}

	valid := rl.requests[chatID][:0]
	for _, t := range rl.requests[chatID] {
		if now.Sub(t) < rl.window {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[chatID] = valid
		return false
	}

	rl.requests[chatID] = append(valid, now)
	return true
}

// sweep удаляет чаты без запросов в текущем окне, раз в окно
func (rl *RateLimiter) sweep(now time.Time) {
	for chatID, times := range rl.requests {
		if len(times) == 0 || now.Sub(times[len(times)-1]) >= rl.window {
			delete(rl.requests, chatID)
		}
	}
	rl.swept = now
}
