package session

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const (
	// CookieName はセッショントークンを運ぶクッキー名です。
	CookieName = "sb_session"
	keyToken   = "session_token"
)

// CookieOptions はセッションクッキーの発行方法です。
type CookieOptions struct {
	MaxAge int // 秒
	Secure bool
}

// NewCookieStore は署名付きクッキーストアを作成します（HttpOnly, SameSite=Lax）。
// クッキーにはトークンのみを載せ、ユーザー情報は載せません。
func NewCookieStore(secret []byte, opts CookieOptions) sessions.Store {
	store := cookie.NewStore(secret)
	store.Options(cookieOptions(opts.MaxAge, opts.Secure))
	return store
}

// MaxAgeFor は ttl をクッキーの MaxAge（秒）に変換します。
func MaxAgeFor(ttl time.Duration) int {
	return int(ttl.Seconds())
}

// Middleware は gin-contrib/sessions のミドルウェアを返します。
func Middleware(store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(CookieName, store)
}

// SetToken は発行したセッションのトークンをクッキーに保存します。
func SetToken(c *gin.Context, s *Session) error {
	sess := sessions.Default(c)
	sess.Set(keyToken, s.Token)
	return sess.Save()
}

// Token はリクエストのクッキーからトークンを取り出します。無い場合は空文字です。
func Token(c *gin.Context) string {
	token, _ := sessions.Default(c).Get(keyToken).(string)
	return token
}

// Clear はクッキーの内容を消去し、ブラウザに削除させます。
func Clear(c *gin.Context, secure bool) error {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(cookieOptions(-1, secure))
	return sess.Save()
}

func cookieOptions(maxAge int, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
