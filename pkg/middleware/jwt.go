package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired はexpクレームが過去の時刻を指していることを表す。
	ErrTokenExpired = errors.New("トークンの有効期限が切れています")
	// ErrTokenInvalid は署名不一致・形式不正などでトークンを受け入れられないことを表す。
	ErrTokenInvalid = errors.New("トークンが無効です")
)

// Claims は検証済みトークンのクレームを表す。
type Claims struct {
	// Issuer はissクレーム。ない場合は空文字列。
	Issuer string
	// Subject はsubクレーム。ない場合は空文字列。
	Subject string
	// ExpiresAt はexpクレーム。ない場合はnil。
	ExpiresAt *time.Time
	// Raw はデコードされたすべてのクレーム。
	Raw jwt.MapClaims
}

// contextKeyClaims はGinコンテキストにクレームを格納するためのキー。
const contextKeyClaims = "jwt_claims"

// VerifyToken はHS256で署名されたトークンを検証し、クレームを返す。
// expクレームは任意だが、存在する場合は現在時刻より後でなければならない。
func VerifyToken(secret, tokenString string) (*Claims, error) {
	mc := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, mc, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{Raw: mc}
	claims.Issuer, _ = mc.GetIssuer()
	claims.Subject, _ = mc.GetSubject()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}
	return claims, nil
}

// GenerateToken はwebhook呼び出し元に配布するトークンを生成する。
// ttlが0の場合はexpクレームを含めない（無期限）。
func GenerateToken(secret, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTAuth はAuthorizationヘッダーのBearerトークンを検証するGinミドルウェアを返す。
// ヘッダーがない・Bearer形式でない場合は403、検証に失敗した場合は401を返す。
// 成功した場合はクレームをコンテキストに設定する。
func JWTAuth(secret string, log logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondError(c, http.StatusForbidden, "Not authenticated", "")
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		tokenString = strings.TrimSpace(tokenString)
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			RespondError(c, http.StatusForbidden, "Invalid authentication credentials", "")
			return
		}

		claims, err := VerifyToken(secret, tokenString)
		switch {
		case errors.Is(err, ErrTokenExpired):
			log.Info("期限切れのトークンを拒否しました", "path", c.Request.URL.Path)
			RespondError(c, http.StatusUnauthorized, "Token expired", "")
			return
		case err != nil:
			log.Info("不正なトークンを拒否しました", "path", c.Request.URL.Path, "reason", err.Error())
			RespondError(c, http.StatusUnauthorized, "Invalid authentication token", "")
			return
		}

		issuer := claims.Issuer
		if issuer == "" {
			issuer = "unknown"
		}
		log.V(1).Info("トークンを検証しました", "issuer", issuer)

		c.Set(contextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims はGinコンテキストから検証済みクレームを取得する。
// JWTAuthミドルウェアが適用されていない場合は空のClaimsを返す。
func GetClaims(c *gin.Context) *Claims {
	if v, ok := c.Get(contextKeyClaims); ok {
		if claims, ok := v.(*Claims); ok {
			return claims
		}
	}
	return &Claims{}
}
