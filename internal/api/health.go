package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dharsanguruparan/docdesk/internal/config"
)

// ReadinessChecker reports whether one dependency is usable.
type ReadinessChecker interface {
	Name() string
	CheckReady(ctx context.Context) error
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type readyResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]checkResult `json:"checks"`
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady returns 503 when any dependency fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]checkResult, len(s.deps.Checkers)),
	}
	for _, c := range s.deps.Checkers {
		if err := c.CheckReady(r.Context()); err != nil {
			resp.Status = "fail"
			resp.Checks[c.Name()] = checkResult{Status: "fail", Message: err.Error()}
			continue
		}
		resp.Checks[c.Name()] = checkResult{Status: "ok"}
	}
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, resp)
}

// RedisPinger is the part of a go-redis client the readiness check needs.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker pings the broker the notification queue lives on.
type RedisChecker struct {
	client RedisPinger
}

// NewRedisClient opens a go-redis client for the configured broker.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisChecker wraps client.
func NewRedisChecker(client RedisPinger) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) CheckReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	return nil
}
