package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestParseToken(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"name":  "Pat Smith",
		"email": "pat@clinic.example",
		"roles": []any{"pharmacist"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	actor, err := ParseToken(raw, testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != "user-1" || actor.Name != "Pat Smith" {
		t.Errorf("unexpected actor: %+v", actor)
	}
	if !actor.HasRole("pharmacist") {
		t.Error("expected pharmacist role")
	}
	if actor.HasRole("admin") {
		t.Error("did not expect admin role")
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"sub": "user-1"})
	if _, err := ParseToken(raw, "other-secret"); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestParseTokenNoSubject(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"name": "No Subject"})
	if _, err := ParseToken(raw, testSecret); err == nil {
		t.Error("expected error for missing subject")
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	e := echo.New()
	e.Use(Middleware(testSecret))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareSetsActor(t *testing.T) {
	e := echo.New()
	e.Use(Middleware(testSecret))
	var got Actor
	e.GET("/", func(c echo.Context) error {
		got = FromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.MapClaims{"sub": "user-2", "roles": "nurse,prescriber"}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.ID != "user-2" || !got.HasRole("prescriber") {
		t.Errorf("unexpected actor: %+v", got)
	}
}

func TestMiddlewareDevModeActsAsAdmin(t *testing.T) {
	e := echo.New()
	e.Use(Middleware(""), RequireRole("pharmacist"))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 in dev mode, got %d", rec.Code)
	}
}

func TestRequireRoleForbidden(t *testing.T) {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := WithActor(c.Request().Context(), Actor{ID: "u", Roles: []string{"nurse"}})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}, RequireRole("pharmacist"))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestFromContextZeroValue(t *testing.T) {
	a := FromContext(context.Background())
	if a.ID != "" || len(a.Roles) != 0 {
		t.Errorf("expected zero actor, got %+v", a)
	}
}
