package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/sngm3741/avero-reporting/api/internal/config"
	reportinghttp "github.com/sngm3741/avero-reporting/api/internal/interfaces/http/reporting"
	reportingapp "github.com/sngm3741/avero-reporting/api/internal/reporting/application"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

const testSecret = "test-secret"

type countingGeneration struct {
	all int
}

func (g *countingGeneration) GenerateAll(context.Context) ([]reportingapp.RunStats, error) {
	g.all++
	return nil, nil
}

func (g *countingGeneration) Generate(_ context.Context, report domain.ReportType) (reportingapp.RunStats, error) {
	return reportingapp.RunStats{Report: report}, nil
}

func testServer(jwtCfg config.JWTConfig, audience string, gen reportingapp.GenerationService) *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Server{
		logger: logger,
		handler: reportinghttp.NewHandler(reportinghttp.Config{
			Logger:     logger,
			Generation: gen,
			Background: func(fn func()) { fn() },
		}),
		jwtConfig:      jwtCfg,
		jwtAudience:    audience,
		allowedOrigins: []string{"https://dashboard.example"},
	}
}

func signToken(t *testing.T, claims authClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func validClaims() authClaims {
	return authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops-user",
			Issuer:    "avero-reporting-admin",
			Audience:  jwt.ClaimStrings{"reporting"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Ops",
	}
}

func TestAdminRequiresValidToken(t *testing.T) {
	gen := &countingGeneration{}
	srv := testServer(config.JWTConfig{Issuer: "avero-reporting-admin", Secret: []byte(testSecret)}, "reporting", gen)
	router := srv.Router()

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"someone-else"}
	noSubject := validClaims()
	noSubject.Subject = ""

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, validClaims(), "other"), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, expired, testSecret), http.StatusUnauthorized},
		{"audience", "Bearer " + signToken(t, wrongAudience, testSecret), http.StatusUnauthorized},
		{"subject", "Bearer " + signToken(t, noSubject, testSecret), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, validClaims(), testSecret), http.StatusAccepted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/generate", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
	if gen.all != 1 {
		t.Fatalf("generation ran %d times", gen.all)
	}
}

func TestAdminRoutesHiddenWithoutSecret(t *testing.T) {
	srv := testServer(config.JWTConfig{}, "", &countingGeneration{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/generate", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(config.JWTConfig{}, "", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	handler := withCORS([]string{"https://dashboard.example"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/reporting", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://dashboard.example" {
		t.Fatalf("headers = %v", rec.Header())
	}

	req = httptest.NewRequest(http.MethodOptions, "/reporting", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("preflight from unknown origin = %d %v", rec.Code, rec.Header())
	}
}
