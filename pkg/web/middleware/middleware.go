package middleware

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/google/uuid"
	"github.com/hertz-contrib/cors"
	"github.com/hertz-contrib/jwt"

	"quick-swgoh/pkg/common/config"
)

const RequestIDKey = "request_id"

// RequestIDMiddleware 沿用调用方的 X-Request-ID，没有则生成 UUID
func RequestIDMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		id := strings.TrimSpace(string(ctx.GetHeader("X-Request-ID")))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		ctx.Set(RequestIDKey, id)
		ctx.Response.Header.Set("X-Request-ID", id)
		ctx.Next(c)
	}
}

const ClientIDKey = "client_id"

// ClientIDMiddleware 用 cookie 标识浏览器，每个浏览器有自己的输出区域和历史记录
// 只接受本服务签发格式的 UUID，其它值一律换新
func ClientIDMiddleware(cookieName string) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		id := string(ctx.Cookie(cookieName))
		if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
			id = uuid.NewString()
			ctx.SetCookie(cookieName, id, 0, "/", "", protocol.CookieSameSiteLaxMode, false, true)
		}
		ctx.Set(ClientIDKey, id)
		ctx.Next(c)
	}
}

// LoggerMiddleware 结构化的请求日志记录
func LoggerMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		latency := time.Since(start)

		hlog.CtxInfof(c, "| %3d | %13v | %15s | %-7s | %s | rid=%s",
			ctx.Response.StatusCode(),
			latency,
			ctx.ClientIP(),
			ctx.Method(),
			ctx.Path(),
			ctx.GetString(RequestIDKey),
		)
	}
}

/*
	启动时指定环境变量
	export APP_ENV=production
	go run ./cmd/web serve
*/

// RecoveryMiddleware 增强型异常捕获（带配置依赖版本）
func RecoveryMiddleware(cfg *config.Config) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				stack := string(debug.Stack())

				hlog.CtxErrorf(c, "[PANIC RECOVERED] %v\n%s", err, stack)

				if cfg.IsProd() {
					ctx.AbortWithStatusJSON(500, map[string]interface{}{
						"code":    500,
						"message": "internal server error",
					})
				} else {
					ctx.AbortWithStatusJSON(500, map[string]interface{}{
						"code":  500,
						"error": fmt.Sprintf("%v", err),
						"stack": strings.Split(stack, "\n"),
					})
				}
			}
		}()
		ctx.Next(c)
	}
}

// CORSMiddleware 安全的跨域配置
func CORSMiddleware(corsConfig config.CORSConfig) app.HandlerFunc {
	return cors.New(
		cors.Config{
			AllowOrigins:     corsConfig.AllowOrigins,
			AllowMethods:     corsConfig.AllowMethods,
			AllowHeaders:     corsConfig.AllowHeaders,
			ExposeHeaders:    corsConfig.ExposeHeaders,
			AllowCredentials: corsConfig.AllowCredentials,
			MaxAge:           corsConfig.MaxAge,
			// 动态校验来源
			AllowOriginFunc: func(origin string) bool {
				for _, domain := range corsConfig.TrustedDomains {
					if strings.Contains(origin, domain) {
						return true
					}
				}
				return false
			},
		},
	)
}

// TimeoutMiddleware 给后续处理器一个带截止时间的上下文
func TimeoutMiddleware(seconds int) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		if seconds <= 0 {
			ctx.Next(c)
			return
		}
		timeoutCtx, cancel := context.WithTimeout(c, time.Duration(seconds)*time.Second)
		defer cancel()

		ctx.Next(timeoutCtx)

		if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			hlog.CtxWarnf(c, "request exceeded %ds path=%s", seconds, ctx.Path())
		}
	}
}

// RateLimitMiddleware 令牌桶算法限流，保护后端不被连续提交打满
func RateLimitMiddleware(rate int, interval time.Duration) app.HandlerFunc {
	if rate <= 0 || interval <= 0 {
		return func(c context.Context, ctx *app.RequestContext) { ctx.Next(c) }
	}
	limiter := NewTokenBucket(rate, interval)

	return func(c context.Context, ctx *app.RequestContext) {
		if !limiter.Allow() {
			hlog.CtxInfof(c, "[RATE LIMIT] path=%s", ctx.Path())
			ctx.AbortWithStatusJSON(429, map[string]interface{}{
				"code":    429001,
				"message": "too many requests",
			})
			return
		}
		ctx.Next(c)
	}
}

// TokenBucket 令牌桶实现，初始为满
type TokenBucket struct {
	capacity int
	tokens   chan struct{}
	rate     time.Duration
}

func NewTokenBucket(rate int, interval time.Duration) *TokenBucket {
	tb := &TokenBucket{
		capacity: rate,
		tokens:   make(chan struct{}, rate),
		rate:     interval,
	}
	for i := 0; i < rate; i++ {
		tb.tokens <- struct{}{}
	}

	// 定时器生产令牌
	go func() {
		ticker := time.NewTicker(tb.rate)
		for range ticker.C {
			select {
			case tb.tokens <- struct{}{}:
			default:
			}
		}
	}()
	return tb
}

func (tb *TokenBucket) Allow() bool {
	select {
	case <-tb.tokens:
		return true
	default:
		return false
	}
}

// SecurityCheckMiddleware 全局安全校验中间件
// 查询字段的内容原样转发给后端，这里不检查参数内容
func SecurityCheckMiddleware(maxBodySize int64, allowedMethods []string) app.HandlerFunc {
	allowed := make(map[string]bool, len(allowedMethods))
	for _, m := range allowedMethods {
		allowed[strings.ToUpper(m)] = true
	}

	return func(c context.Context, ctx *app.RequestContext) {
		if maxBodySize > 0 && int64(ctx.Request.Header.ContentLength()) > maxBodySize {
			securityResponse(ctx, 413001, "request body exceeds max size", 413)
			return
		}

		if len(allowed) > 0 && !allowed[string(ctx.Method())] {
			securityResponse(ctx, 405001, "method not allowed", 405)
			return
		}

		ctx.Next(c)
	}
}

// SessionAuthMiddleware 校验会话 cookie 中后端签发的令牌
func SessionAuthMiddleware(cfg config.SessionConfig, unauthorized func(ctx context.Context, c *app.RequestContext, code int, message string)) app.HandlerFunc {
	authMiddleware, err := jwt.New(&jwt.HertzJWTMiddleware{
		Realm:            cfg.Realm,
		SigningAlgorithm: cfg.SigningMethod,
		Key:              []byte(cfg.Secret),
		TokenLookup:      "cookie:" + cfg.CookieName,
		IdentityKey:      "sub",
		TimeFunc:         time.Now,
		Unauthorized:     unauthorized,
	})
	if err != nil {
		panic(fmt.Sprintf("session middleware init failed: %v", err))
	}
	return authMiddleware.MiddlewareFunc()
}

// 安全响应统一处理
func securityResponse(ctx *app.RequestContext, code int, msg string, status int) {
	hlog.Warnf("SecurityAlert[code=%d]: %s", code, msg)
	ctx.AbortWithStatusJSON(status, map[string]interface{}{
		"code":    code,
		"message": msg,
	})
}
