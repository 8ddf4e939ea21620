package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionKeyCSRF = "csrf_token"

	// CSRFField はフォームに埋め込む CSRF トークンのフィールド名です。
	CSRFField = "_csrf"
	// CSRFHeader は CSRF トークンを送るヘッダー名です。
	CSRFHeader = "X-CSRF-Token"
)

// CSRFToken はクッキーセッションの CSRF トークンを返します。無ければ生成して保存します。
func CSRFToken(c *gin.Context) (string, error) {
	sess := sessions.Default(c)
	if token, ok := sess.Get(sessionKeyCSRF).(string); ok && token != "" {
		return token, nil
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}
	sess.Set(sessionKeyCSRF, token)
	if err := sess.Save(); err != nil {
		return "", err
	}
	return token, nil
}

// VerifyCSRF は安全でないメソッドに対して CSRF トークンを検証するミドルウェアです。
// enabled が false の場合は何もしません。
func VerifyCSRF(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		expected, ok := sessions.Default(c).Get(sessionKeyCSRF).(string)
		if !ok || expected == "" {
			c.String(http.StatusForbidden, "CSRF token missing")
			c.Abort()
			return
		}

		received := c.GetHeader(CSRFHeader)
		if received == "" {
			received = c.PostForm(CSRFField)
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			c.String(http.StatusForbidden, "CSRF token mismatch")
			c.Abort()
			return
		}

		c.Next()
	}
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
