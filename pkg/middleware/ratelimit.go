package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"audio-convert-service/pkg/errno"
	"audio-convert-service/pkg/restapi"
)

// RateLimiter 按IP的分钟级限流器,优先走Redis固定窗口计数,
// Redis不可用时退化到本机内存计数。
type RateLimiter struct {
	rpm        int
	redis      *redis.Client
	inMemMu    sync.Mutex
	inMemCount map[string]int
	inMemReset time.Time
}

// NewRateLimiter 创建限流器,redisClient可以为nil
func NewRateLimiter(requestsPerMinute int, redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		rpm:        requestsPerMinute,
		redis:      redisClient,
		inMemCount: map[string]int{},
	}
}

func minuteKey(ip string) string {
	return fmt.Sprintf("audio-convert:ratelimit:%s:%d", ip, time.Now().Unix()/60)
}

// Allow 判断该IP当前分钟内是否还有配额
func (r *RateLimiter) Allow(ip string) bool {
	if r.rpm <= 0 {
		return true
	}
	if r.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		key := minuteKey(ip)
		n, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			return r.allowInMem(ip)
		}
		if n == 1 {
			_ = r.redis.Expire(ctx, key, 65*time.Second).Err()
		}
		return int(n) <= r.rpm
	}
	return r.allowInMem(ip)
}

func (r *RateLimiter) allowInMem(ip string) bool {
	now := time.Now()
	r.inMemMu.Lock()
	defer r.inMemMu.Unlock()
	if now.Sub(r.inMemReset) > 60*time.Second {
		r.inMemCount = map[string]int{}
		r.inMemReset = now
	}
	r.inMemCount[ip]++
	return r.inMemCount[ip] <= r.rpm
}

// RateLimitMiddleware 超出配额直接返回429
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			restapi.Failed(c, errno.ErrTooManyReqs)
			c.Abort()
			return
		}
		c.Next()
	}
}
