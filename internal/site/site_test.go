package site

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricofy/cms-lambda/internal/adapter"
	"github.com/pricofy/cms-lambda/internal/config"
)

func contentRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"themes/casper/assets/css", "images/2024", "public"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755))
	}
	files := map[string]string{
		"themes/casper/index.html":            "<h1>casper</h1>",
		"themes/casper/assets/css/screen.css": "body{}",
		"images/2024/cat.txt":                 "meow",
		"public/robots.txt":                   "User-agent: *",
	}
	for rel, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte(body), 0o644))
	}
	return root
}

func bootSite(t *testing.T, opts Options) *Site {
	t.Helper()
	if opts.Site.ContentPath == "" {
		opts.Site = config.Site{
			URL:         "https://blog.example.com",
			AdminURL:    "https://blog.example.com/ghost",
			ContentPath: contentRoot(t),
		}
	}
	s, err := Boot(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func serve(t *testing.T, s *Site, method, target string) *adapter.Response {
	t.Helper()
	req := adapter.NewRequest(httptest.NewRequest(method, target, nil))
	res := adapter.NewResponse()
	res.Locals()[adapter.LocalRequestID] = "req-1"

	var nextErr error
	s.Serve(req, res, func(err error) { nextErr = err })
	require.NoError(t, nextErr)
	require.True(t, res.Finished())
	return res
}

func TestBoot_WithoutConfigFile(t *testing.T) {
	s := bootSite(t, Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.json"),
		Backend:    true,
		Frontend:   true,
	})

	assert.Nil(t, s.db)
	assert.Nil(t, s.cache)
}

func TestBoot_InvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Boot(context.Background(), Options{ConfigPath: path, Backend: true})
	assert.Error(t, err)
}

func TestBoot_UnsupportedDatabaseClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database":{"client":"sqlite3","connection":{"host":"x"}}}`), 0o644))

	_, err := Boot(context.Background(), Options{ConfigPath: path, Backend: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database client")
}

func TestServe_Frontend(t *testing.T) {
	s := bootSite(t, Options{Frontend: true})

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{name: "theme index", target: "/", status: http.StatusOK, body: "<h1>casper</h1>"},
		{name: "theme asset", target: "/assets/css/screen.css", status: http.StatusOK, body: "body{}"},
		{name: "content image", target: "/content/images/2024/cat.txt", status: http.StatusOK, body: "meow"},
		{name: "public file", target: "/robots.txt", status: http.StatusOK, body: "User-agent: *"},
		{name: "unclean path", target: "/../../etc/passwd", status: http.StatusMovedPermanently},
		{name: "unknown", target: "/nope", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := serve(t, s, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, res.StatusCode())
			if tt.body != "" {
				assert.Equal(t, tt.body, string(res.Body()))
			}
			if tt.status == http.StatusOK {
				assert.Equal(t, "req-1", res.Get("X-Request-Id"))
			}
		})
	}
}

func TestServe_BackendDisabled(t *testing.T) {
	s := bootSite(t, Options{Frontend: true})

	res := serve(t, s, http.MethodGet, "/ghost/api/admin/site/")
	assert.Equal(t, http.StatusNotFound, res.StatusCode())
}

func TestServe_AdminSite(t *testing.T) {
	s := bootSite(t, Options{Backend: true})

	res := serve(t, s, http.MethodGet, "/ghost/api/admin/site/")
	require.Equal(t, http.StatusOK, res.StatusCode())

	var body struct {
		Site siteInfo `json:"site"`
	}
	require.NoError(t, json.Unmarshal(res.Body(), &body))
	assert.Equal(t, "https://blog.example.com", body.Site.URL)
	assert.Equal(t, "https://blog.example.com/ghost", body.Site.AdminURL)
	assert.Equal(t, Version, body.Site.Version)
}

func TestServe_AdminRedirect(t *testing.T) {
	s := bootSite(t, Options{Backend: true})

	res := serve(t, s, http.MethodGet, "/ghost")
	assert.Equal(t, http.StatusFound, res.StatusCode())
	assert.Equal(t, "https://blog.example.com/ghost/", res.Get("Location"))
}

func TestServe_MethodNotAllowed(t *testing.T) {
	s := bootSite(t, Options{Backend: true})

	res := serve(t, s, http.MethodPost, "/ghost/api/health")
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode())
}

func TestServe_Metrics(t *testing.T) {
	s := bootSite(t, Options{Backend: true})

	res := serve(t, s, http.MethodGet, "/ghost/api/metrics")
	assert.Equal(t, http.StatusOK, res.StatusCode())
}

func TestServe_Health(t *testing.T) {
	t.Run("no stores", func(t *testing.T) {
		s := bootSite(t, Options{Backend: true})

		res := serve(t, s, http.MethodGet, "/ghost/api/health")
		assert.Equal(t, http.StatusOK, res.StatusCode())
		assert.JSONEq(t, `{"status":"ok","checks":{"database":"disabled","cache":"disabled"}}`, string(res.Body()))
	})

	t.Run("database reachable", func(t *testing.T) {
		raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		mock.ExpectPing()

		s := bootSite(t, Options{Backend: true, DB: sqlx.NewDb(raw, "mysql")})

		res := serve(t, s, http.MethodGet, "/ghost/api/health")
		assert.Equal(t, http.StatusOK, res.StatusCode())
		assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok","cache":"disabled"}}`, string(res.Body()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database down", func(t *testing.T) {
		raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		s := bootSite(t, Options{Backend: true, DB: sqlx.NewDb(raw, "mysql")})

		res := serve(t, s, http.MethodGet, "/ghost/api/health")
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode())
		assert.Contains(t, string(res.Body()), "connection refused")
	})
}
