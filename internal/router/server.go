package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	robfigcron "github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/sbchat/sbchat/internal/config"
)

// HealthPath serves the router's Stats as JSON.
const HealthPath = "/healthz"

const shutdownTimeout = 5 * time.Second

// Server hosts a Router over HTTP.
type Server struct {
	cfg    config.RouterConfig
	router *Router
	http   *http.Server
}

func NewServer(cfg config.RouterConfig) *Server {
	r := New()

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, r)
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(r.Stats()); err != nil {
			slog.Debug("router: write health", "err", err)
		}
	})

	return &Server{
		cfg:    cfg,
		router: r,
		http: &http.Server{
			Addr:              cfg.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Router() *Router { return s.router }

// Handler returns the server's mux, for mounting under httptest.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run listens on cfg.Listen and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully and disconnects all peers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("router: listening", "addr", ln.Addr().String(), "path", s.cfg.Path)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("router: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Hijacked websocket connections are not tracked by Shutdown.
		s.router.CloseAll()
		return s.http.Shutdown(shutdownCtx)
	})

	if s.cfg.StatsSchedule != "" {
		g.Go(func() error { return s.runStats(gctx) })
	}

	err := g.Wait()
	if err == nil || errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	return err
}

func (s *Server) runStats(ctx context.Context) error {
	c := robfigcron.New()
	if _, err := c.AddFunc(s.cfg.StatsSchedule, s.logStats); err != nil {
		return fmt.Errorf("router: stats schedule %q: %w", s.cfg.StatsSchedule, err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Server) logStats() {
	st := s.router.Stats()
	slog.Info("router: stats", "nodes", st.Nodes, "calls", st.Calls, "failed", st.Failed, "uptimeSec", st.UptimeSec)
}

// HealthURL derives the health endpoint from a node's router URL,
// e.g. ws://host:7464/bus -> http://host:7464/healthz.
func HealthURL(routerURL string) (string, error) {
	u, err := url.Parse(routerURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = HealthPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// FetchStats queries the health endpoint behind routerURL.
func FetchStats(ctx context.Context, client *http.Client, routerURL string) (Stats, error) {
	var st Stats
	healthURL, err := HealthURL(routerURL)
	if err != nil {
		return st, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return st, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("health: HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("health: decode: %w", err)
	}
	return st, nil
}
