package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("s3cret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	token, err := issuer.GenerateClientToken("laptop-1")
	if err != nil {
		t.Fatalf("GenerateClientToken() error = %v", err)
	}
	claims, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.ClientID != "laptop-1" || claims.Role != RoleClient {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenIssuer_RejectsForeignAndExpired(t *testing.T) {
	issuer, _ := NewTokenIssuer("s3cret", time.Hour)
	other, _ := NewTokenIssuer("different", time.Hour)

	token, _ := other.GenerateClientToken("x")
	if _, err := issuer.ValidateToken(token); err == nil {
		t.Error("token signed with another secret should be rejected")
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		ClientID: "x",
		Role:     RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, _ := expired.SignedString([]byte("s3cret"))
	if _, err := issuer.ValidateToken(signed); err == nil {
		t.Error("expired token should be rejected")
	}
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", 0); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestMiddleware(t *testing.T) {
	issuer, _ := NewTokenIssuer("s3cret", time.Hour)
	token, _ := issuer.GenerateClientToken("laptop-1")

	e := echo.New()
	e.Use(Middleware(issuer, zaptest.NewLogger(t)))
	e.GET("/api/voice", func(c echo.Context) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, claims.ClientID)
	})

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{name: "missing", target: "/api/voice", want: http.StatusUnauthorized},
		{name: "garbage", target: "/api/voice", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "header", target: "/api/voice", header: "Bearer " + token, want: http.StatusOK},
		{name: "query", target: "/api/voice?token=" + token, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
