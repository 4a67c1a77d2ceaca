// Package svcctx provides service context for dependency injection via
// context. Job handlers run inside the worker pool and receive only a
// context, so the wired services travel on it.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/foliokit/folio/internal/assets"
	"github.com/foliokit/folio/internal/catalog"
	"github.com/foliokit/folio/internal/config"
	"github.com/foliokit/folio/internal/engine"
	"github.com/foliokit/folio/internal/home"
	"github.com/foliokit/folio/internal/jobs"
	"github.com/foliokit/folio/internal/preprocess"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Config       *config.Config
	Logger       *slog.Logger
	Home         *home.Dir
	Catalog      *catalog.Store
	Flusher      *catalog.Flusher
	Assets       *assets.Store
	Engine       engine.Engine
	Preprocessor *preprocess.Preprocessor
	Queue        jobs.Queue
	Pool         *jobs.Pool
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ConfigFrom extracts the loaded configuration from context.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// CatalogFrom extracts the document catalog from context.
func CatalogFrom(ctx context.Context) *catalog.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Catalog
	}
	return nil
}

// FlusherFrom extracts the snapshot flusher from context.
func FlusherFrom(ctx context.Context) *catalog.Flusher {
	if s := ServicesFrom(ctx); s != nil {
		return s.Flusher
	}
	return nil
}

// AssetsFrom extracts the asset store from context.
func AssetsFrom(ctx context.Context) *assets.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Assets
	}
	return nil
}

// EngineFrom extracts the active recognition engine from context.
func EngineFrom(ctx context.Context) engine.Engine {
	if s := ServicesFrom(ctx); s != nil {
		return s.Engine
	}
	return nil
}

// PreprocessorFrom extracts the image preprocessor from context.
func PreprocessorFrom(ctx context.Context) *preprocess.Preprocessor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Preprocessor
	}
	return nil
}

// QueueFrom extracts the job queue from context.
func QueueFrom(ctx context.Context) jobs.Queue {
	if s := ServicesFrom(ctx); s != nil {
		return s.Queue
	}
	return nil
}

// PoolFrom extracts the worker pool from context.
func PoolFrom(ctx context.Context) *jobs.Pool {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pool
	}
	return nil
}
