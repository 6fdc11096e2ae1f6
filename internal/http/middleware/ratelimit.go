package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/clients/redis"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/http/response"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/ctxutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

// RateLimit spends one token per request from a bucket keyed by caller and
// route. Limiter failures let the request through.
func RateLimit(log *logger.Logger, limiter redis.RateLimiter) gin.HandlerFunc {
	if limiter == nil || !limiter.Config().Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("middleware", "RateLimit")
	return func(c *gin.Context) {
		key := rateKey(c)
		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("Rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			e := apierr.New(apierr.CodeRateLimit, "", "rate limit exceeded, try again later")
			e.RetryAfter = d.RetryAfter
			response.RespondAPIError(c, e)
			return
		}
		c.Next()
	}
}

func rateKey(c *gin.Context) string {
	caller := "anon"
	if id := ctxutil.UserID(c.Request.Context()); id != uuid.Nil {
		caller = "user:" + id.String()
	} else if ip := c.ClientIP(); ip != "" {
		caller = "ip:" + ip
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return strings.Join([]string{caller, c.Request.Method, route}, ":")
}
