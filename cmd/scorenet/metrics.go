package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"scorenet/internal/session"
)

// metricsServer exposes /metrics while a long-running command works.
type metricsServer struct {
	srv  *http.Server
	ln   net.Listener
	done chan struct{}
}

// serveMetrics binds addr and serves the session metrics in the background.
// Binding errors are returned before anything is served.
func (a *app) serveMetrics(addr string) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}
	if a.verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(session.MetricsHandler()))
	m := &metricsServer{
		srv:  &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second},
		ln:   ln,
		done: make(chan struct{}),
	}
	go func() {
		defer close(m.done)
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return m, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (m *metricsServer) Addr() string {
	return m.ln.Addr().String()
}

// Close stops the server and waits for it to exit.
func (m *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.srv.Shutdown(ctx)
	<-m.done
	return err
}
