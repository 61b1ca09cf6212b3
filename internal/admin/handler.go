// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/paywall-blog/internal/core"
	"github.com/carterperez-dev/paywall-blog/internal/user"
)

// ContentLibrary is the part of the content library operators control.
type ContentLibrary interface {
	Len() int
	Ping(ctx context.Context) error
	Reload(ctx context.Context) error
}

type Handler struct {
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
	userStats  func() user.Stats
	content    ContentLibrary
}

// HandlerConfig wires the handler. DB and Redis entries stay nil when the
// optional backends are not configured.
type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
	UserStats  func() user.Stats
	Content    ContentLibrary
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
		userStats:  cfg.UserStats,
		content:    cfg.Content,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/stats", h.GetSystemStats)
		r.Get("/admin/stats/db", h.GetDatabaseStats)
		r.Get("/admin/stats/redis", h.GetRedisStats)
		r.Get("/admin/stats/runtime", h.GetRuntimeStats)
		r.Post("/admin/content/reload", h.ReloadContent)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := SystemStatsResponse{
		Content:  h.contentStatus(ctx),
		Database: DatabaseStatus{Configured: h.dbPing != nil},
		Redis:    RedisStatus{Configured: h.redisPing != nil},
		Runtime:  readRuntimeStats(),
	}

	if h.userStats != nil {
		st := h.userStats()
		response.Users = &UserStats{
			Total:        st.Users,
			Confirmed:    st.Confirmed,
			Admins:       st.Admins,
			Entitlements: st.Entitlements,
		}
	}

	if h.dbPing != nil {
		response.Database.Healthy = h.dbPing(ctx) == nil
		response.Database.Stats = h.getDBStats()
	}

	if h.redisPing != nil {
		response.Redis.Healthy = h.redisPing(ctx) == nil
		response.Redis.Stats = h.getRedisStats()
	}

	core.OK(w, response)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.getDBStats()
	if stats == nil {
		core.NotFound(w, "database")
		return
	}
	core.OK(w, stats)
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.getRedisStats()
	if stats == nil {
		core.NotFound(w, "redis")
		return
	}
	core.OK(w, stats)
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntimeStats())
}

// ReloadContent rebuilds the content store from disk. A failed rebuild
// keeps serving the previous store.
func (h *Handler) ReloadContent(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		core.NotFound(w, "content library")
		return
	}

	if err := h.content.Reload(r.Context()); err != nil {
		core.JSONError(w, core.NewAppError(
			err,
			"content reload failed; previous content is still served",
			http.StatusUnprocessableEntity,
			"RELOAD_FAILED",
		))
		return
	}

	core.OK(w, h.contentStatus(r.Context()))
}

func (h *Handler) contentStatus(ctx context.Context) ContentStatus {
	if h.content == nil {
		return ContentStatus{}
	}
	return ContentStatus{
		Loaded: h.content.Ping(ctx) == nil,
		Items:  h.content.Len(),
	}
}

func readRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}

type SystemStatsResponse struct {
	Users    *UserStats     `json:"users,omitempty"`
	Content  ContentStatus  `json:"content"`
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Runtime  RuntimeStats   `json:"runtime"`
}

type UserStats struct {
	Total        int `json:"total"`
	Confirmed    int `json:"confirmed"`
	Admins       int `json:"admins"`
	Entitlements int `json:"entitlements"`
}

type ContentStatus struct {
	Loaded bool `json:"loaded"`
	Items  int  `json:"items"`
}

type DatabaseStatus struct {
	Configured bool         `json:"configured"`
	Healthy    bool         `json:"healthy"`
	Stats      *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Configured bool            `json:"configured"`
	Healthy    bool            `json:"healthy"`
	Stats      *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
