package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing debug-level log
// records. Failures are logged at warn level.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log to logger, or to log.Default() if nil.
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{logger: logger.WithPrefix("obs")}
}

func (h *LogHooks) OnFetchStart(_ context.Context, view string, seq uint64) {
	h.logger.Debug("fetch start", "view", view, "seq", seq)
}

func (h *LogHooks) OnFetchComplete(_ context.Context, view string, seq uint64, count int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("fetch failed", "view", view, "seq", seq, "duration", d, "err", err)
		return
	}
	h.logger.Debug("fetch complete", "view", view, "seq", seq, "count", count, "duration", d)
}

func (h *LogHooks) OnStaleDiscarded(_ context.Context, view string, seq, latest uint64) {
	h.logger.Debug("stale response discarded", "view", view, "seq", seq, "latest", latest)
}

func (h *LogHooks) OnGraphBuilt(_ context.Context, nodes, edges, issues int, d time.Duration) {
	if issues > 0 {
		h.logger.Warn("graph built with malformed records", "nodes", nodes, "edges", edges, "issues", issues)
		return
	}
	h.logger.Debug("graph built", "nodes", nodes, "edges", edges, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Warn("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ ViewHooks  = (*LogHooks)(nil)
	_ CacheHooks = (*LogHooks)(nil)
	_ HTTPHooks  = (*LogHooks)(nil)
)
