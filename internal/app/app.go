// Package app assembles the application: configuration, tracing,
// database pool, Genkit provider, knowledge base, ingester, tutor, and
// session store. Construct with Setup and release with Close.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ycotes/professor/internal/config"
	"github.com/ycotes/professor/internal/cost"
	"github.com/ycotes/professor/internal/ingest"
	"github.com/ycotes/professor/internal/knowledge"
	"github.com/ycotes/professor/internal/session"
	"github.com/ycotes/professor/internal/tutor"
)

const tracerShutdownTimeout = 5 * time.Second

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge *knowledge.Store
	Ingester  *ingest.Ingester
	Tutor     *tutor.Tutor
	Sessions  *session.Store
	Meter     *cost.Meter

	otelShutdown func(context.Context) error
}

// Close releases all resources in reverse construction order.
func (a *App) Close() error {
	a.logger().Info("shutting down application")

	if a.DBPool != nil {
		a.DBPool.Close()
		a.logger().Debug("database pool closed")
	}

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.logger().Warn("shutting down tracer provider", "error", err)
		}
	}

	return nil
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
