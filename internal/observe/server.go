// Package observe exposes the running session over a local HTTP API: a
// status snapshot, an SSE event stream, and the action endpoints the fl
// CLI drives. It binds to loopback; it is a control socket, not a public
// surface.
package observe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jspencer/fieldlink/internal/location"
	"github.com/jspencer/fieldlink/internal/session"
)

// Session is the slice of the session agent the API needs. *session.Agent
// implements it; tests substitute mocks.
type Session interface {
	Status() session.Snapshot
	Subscribe() (<-chan session.Event, func())
	SetOnline(ctx context.Context, online bool) error
	AcceptJob(ctx context.Context, jobID int64) error
	RejectJob(ctx context.Context, jobID int64)
	CompleteJob(ctx context.Context, jobID int64, price float64) error
	CancelJob(ctx context.Context, jobID int64, reason string) error
	Reconnect()
}

// StartOpts holds configuration for the observe server.
type StartOpts struct {
	Session  Session
	Location *location.Source
	Port     int
	Out      io.Writer
}

// Start launches the observe HTTP server on loopback. It blocks until ctx
// is cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Session == nil {
		return fmt.Errorf("observe: session is required")
	}
	if opts.Port <= 0 {
		opts.Port = 7643
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts.Session, opts.Location)

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Observe API on http://127.0.0.1:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("observe: %w", err)
	}
	return nil
}
