// Package site is the middleware-chain application served by the adapter.
//
// Boot wires the backend (database, cache, admin API) and the frontend
// (theme and content files) without binding a listener; requests arrive
// through Serve, one invocation at a time.
package site

import (
	"context"
	"path/filepath"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pricofy/cms-lambda/internal/adapter"
	"github.com/pricofy/cms-lambda/internal/config"
)

// Version is reported by the admin site endpoint.
const Version = "1.0.0"

// Options controls what Boot wires.
type Options struct {
	Site       config.Site
	ConfigPath string
	Theme      string
	Backend    bool
	Frontend   bool
	Logger     *zap.Logger

	// DB and Cache replace the handles Boot would open from the config file.
	DB    *sqlx.DB
	Cache *redis.Client
}

// Site is a booted application instance.
type Site struct {
	opts   Options
	file   FileConfig
	db     *sqlx.DB
	cache  *redis.Client
	router *mux.Router
	app    adapter.App
	log    *zap.Logger
}

// Boot reads the resolved config, connects the backing stores in parallel
// and builds the router.
func Boot(ctx context.Context, opts Options) (*Site, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Theme == "" {
		opts.Theme = config.DefaultThemeName
	}

	file, err := ReadFileConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	s := &Site{
		opts:  opts,
		file:  file,
		db:    opts.DB,
		cache: opts.Cache,
		log:   opts.Logger.With(zap.String("component", "site")),
	}

	if opts.Backend {
		if err := s.connect(ctx); err != nil {
			return nil, err
		}
	}

	s.router = s.routes()
	s.app = adapter.HandlerApp(s.router)

	s.log.Info("Site booted",
		zap.String("url", opts.Site.URL),
		zap.Bool("backend", opts.Backend),
		zap.Bool("frontend", opts.Frontend),
		zap.Bool("database", s.db != nil),
		zap.Bool("cache", s.cache != nil))
	return s, nil
}

func (s *Site) connect(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.db == nil && s.file.Database.Enabled() {
		g.Go(func() error {
			db, err := openDatabase(gctx, s.file.Database)
			if err != nil {
				return err
			}
			s.db = db
			return nil
		})
	}
	if s.cache == nil && s.file.Cache.Enabled() {
		g.Go(func() error {
			cache, err := openCache(gctx, s.file.Cache)
			if err != nil {
				return err
			}
			s.cache = cache
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.Close()
		return err
	}
	return nil
}

// Serve runs the request through the middleware chain.
func (s *Site) Serve(req *adapter.Request, res *adapter.Response, next adapter.NextFunc) {
	s.app.Serve(req, res, next)
}

// Close releases the database and cache handles.
func (s *Site) Close() error {
	var first error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			first = err
		}
		s.db = nil
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil && first == nil {
			first = err
		}
		s.cache = nil
	}
	return first
}

func (s *Site) contentDir(parts ...string) string {
	return filepath.Join(append([]string{s.opts.Site.ContentPath}, parts...)...)
}
