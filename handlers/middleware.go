package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"roadmap_tutor/metrics"
	"roadmap_tutor/models"
	"roadmap_tutor/utils"
)

type ctxKey int

const userIDKey ctxKey = iota

// WithUserID 将用户 ID 写入上下文
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext 返回当前请求的用户 ID，未识别时为空
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Identity 识别请求用户。配置了 jwtSecret 时校验 HS256 Bearer token 并读取 sub（或 user_id）声明，
// 否则信任网关注入的 header。无法识别时返回 401。
func Identity(jwtSecret, header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				userID string
				err    error
			)
			if jwtSecret != "" {
				userID, err = userFromBearer(r.Header.Get("Authorization"), jwtSecret)
			} else {
				userID = strings.TrimSpace(r.Header.Get(header))
			}
			if err != nil || userID == "" {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, models.CodeUnauthorized, "")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func userFromBearer(authorization, secret string) (string, error) {
	tokenStr, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || tokenStr == "" {
		return "", errors.New("missing bearer token")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	for _, key := range []string{"sub", "user_id"} {
		if id := claimString(claims[key]); id != "" {
			return id, nil
		}
	}
	return "", errors.New("token has no user claim")
}

func claimString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Metrics 按路由模板记录请求数和耗时
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}
