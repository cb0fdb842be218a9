package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"wisefido-asset/internal/domain"
)

// Claims 访问令牌载荷
type Claims struct {
	UserID     string `json:"userID"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	Department string `json:"department"`
	jwt.RegisteredClaims
}

// TokenIssuer HS256 令牌签发与校验
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue 为操作人员签发令牌
func (i *TokenIssuer) Issue(op domain.Operator, now time.Time) (string, error) {
	if strings.TrimSpace(op.ID) == "" {
		return "", fmt.Errorf("%w: operator id is required", domain.ErrInvalidInput)
	}
	claims := Claims{
		UserID:     op.ID,
		Username:   op.Username,
		Role:       op.Role,
		Department: op.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse 校验令牌并还原操作人员
func (i *TokenIssuer) Parse(tokenString string) (*domain.Operator, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return &domain.Operator{
		ID:         claims.UserID,
		Username:   claims.Username,
		Role:       claims.Role,
		Department: claims.Department,
	}, nil
}

type operatorKey struct{}

// WithOperator 将操作人员放入上下文
func WithOperator(ctx context.Context, op domain.Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFrom 读取上下文中的操作人员
func OperatorFrom(ctx context.Context) (domain.Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(domain.Operator)
	return op, ok
}

// bearerToken Authorization 头优先，websocket 握手可用 ?token=
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// AuthMiddleware 校验 Bearer 令牌
func AuthMiddleware(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				writeJSON(w, http.StatusUnauthorized, Fail("missing or invalid Authorization header"))
				return
			}
			op, err := issuer.Parse(tokenString)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, Fail("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), *op)))
		})
	}
}
