package site

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pricofy/cms-lambda/internal/adapter"
	"github.com/pricofy/cms-lambda/internal/metrics"
)

const healthTimeout = 2 * time.Second

func (s *Site) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware(s.log))
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	if s.opts.Backend {
		api := r.PathPrefix("/ghost/api").Subrouter()
		api.HandleFunc("/admin/site/", s.handleSite).Methods(http.MethodGet)
		api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
		api.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
		r.HandleFunc("/ghost", s.handleAdminRedirect).Methods(http.MethodGet)
	}

	if s.opts.Frontend {
		images := http.StripPrefix("/content/images/", http.FileServer(http.Dir(s.contentDir("images"))))
		r.PathPrefix("/content/images/").Handler(images).Methods(http.MethodGet, http.MethodHead)

		assets := http.StripPrefix("/assets/", http.FileServer(http.Dir(s.contentDir("themes", s.opts.Theme, "assets"))))
		r.PathPrefix("/assets/").Handler(assets).Methods(http.MethodGet, http.MethodHead)

		r.PathPrefix("/").HandlerFunc(s.handleFrontend).Methods(http.MethodGet, http.MethodHead)
	}

	return r
}

type siteInfo struct {
	Title    string `json:"title,omitempty"`
	URL      string `json:"url"`
	AdminURL string `json:"admin_url"`
	Version  string `json:"version"`
}

func (s *Site) handleSite(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]siteInfo{
		"site": {
			Title:    s.file.Title,
			URL:      s.opts.Site.URL,
			AdminURL: s.opts.Site.AdminURL,
			Version:  Version,
		},
	})
}

func (s *Site) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := map[string]string{
		"database": "disabled",
		"cache":    "disabled",
	}
	status := http.StatusOK

	if s.db != nil {
		checks["database"] = "ok"
		if err := s.db.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if s.cache != nil {
		checks["cache"] = "ok"
		if err := s.cache.Ping(ctx).Err(); err != nil {
			checks["cache"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": checks})
}

func (s *Site) handleAdminRedirect(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSuffix(s.opts.Site.AdminURL, "/") + "/"
	if res, ok := adapter.AsResponse(w); ok {
		_ = res.Redirect(target)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handleFrontend serves public files, then the theme's index page for "/".
func (s *Site) handleFrontend(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean("/" + r.URL.Path)

	if clean == "/" {
		index := s.contentDir("themes", s.opts.Theme, "index.html")
		if isFile(index) {
			http.ServeFile(w, r, index)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": s.opts.Site.URL, "status": "ok"})
		return
	}

	file := s.contentDir("public", filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if isFile(file) {
		http.ServeFile(w, r, file)
		return
	}
	notFound(w, r)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, adapter.ErrorBody{Error: "Not found"})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, adapter.ErrorBody{Error: "Method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if res, ok := adapter.AsResponse(w); ok {
		_ = res.Status(status).JSON(v)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if res, ok := adapter.AsResponse(w); ok {
			if id, _ := res.Locals()[adapter.LocalRequestID].(string); id != "" {
				res.Set("X-Request-Id", id)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("elapsed", time.Since(start)),
			}
			if res, ok := adapter.AsResponse(w); ok {
				fields = append(fields, zap.Int("status", res.StatusCode()))
			}
			log.Debug("Request served", fields...)
		})
	}
}
