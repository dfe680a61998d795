package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/lodgein/stay-booking/internal/utils"
)

const testSecret = "test-secret"

func runProtected(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWTAuth(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec, c
}

func TestJWTAuthAcceptsIssuedToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 7, "HOST", 15)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec, c := runProtected(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	// Claims decoded from JSON arrive as float64.
	if got, ok := c.Get("user_id").(float64); !ok || got != 7 {
		t.Errorf("user_id = %v, want 7", c.Get("user_id"))
	}
	if got, ok := c.Get("role").(string); !ok || got != "HOST" {
		t.Errorf("role = %v, want HOST", c.Get("role"))
	}
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	rec, _ := runProtected(t, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 7, "USER", 15)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec, _ := runProtected(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := RequireRole("HOST", "ADMIN")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	tests := []struct {
		role string
		want int
	}{
		{"HOST", http.StatusOK},
		{"ADMIN", http.StatusOK},
		{"USER", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/v1/listings", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if tt.role != "" {
			c.Set("role", tt.role)
		}
		if err := handler(c); err != nil {
			t.Fatalf("handler: %v", err)
		}
		if rec.Code != tt.want {
			t.Errorf("role %q: status = %d, want %d", tt.role, rec.Code, tt.want)
		}
	}
}
