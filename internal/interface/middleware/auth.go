package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
)

const (
	CtxUserIDKey    = "userID"
	CtxUserNameKey  = "userName"
	CtxUserEmailKey = "userEmail"
)

// Identify reads the access_token cookie and, when it is valid (and, with Redis configured,
// backed by a live session), sets userID, userName and userEmail in the Gin context.
// It never rejects a request.
func Identify(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identify(c, rdb, jwt)
		c.Next()
	}
}

// Auth redirects requests without a valid session to loginPath.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserIDFromCtx(c); !ok {
			identify(c, rdb, jwt)
		}
		if _, ok := UserIDFromCtx(c); !ok {
			c.Redirect(http.StatusSeeOther, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

func identify(c *gin.Context, rdb *redis.Client, jwt *helpers.JWTManager) {
	token, err := c.Cookie(helpers.AccessCookie)
	if err != nil || token == "" {
		return
	}
	claims, err := jwt.ParseAccessToken(token)
	if err != nil {
		return
	}
	if rdb != nil {
		data, err := rdb.HGetAll(c.Request.Context(), helpers.SessionKey(claims.UserID)).Result()
		if err != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return
		}
		c.Set(CtxUserEmailKey, data["email"])
	}
	c.Set(CtxUserIDKey, claims.UserID)
	c.Set(CtxUserNameKey, claims.Name)
}

// UserIDFromCtx returns the authenticated user id set by Identify.
func UserIDFromCtx(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func userKey(c *gin.Context) string {
	if id, ok := UserIDFromCtx(c); ok {
		return strconv.FormatInt(id, 10)
	}
	return ""
}
