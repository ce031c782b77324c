package audit

import (
	"context"
	"fmt"

	"github.com/moltbot/rampart/pkg/config"
)

// Open constructs the sink selected by the configuration. Backends that
// need a connection fail here, at startup, rather than on the first
// evaluation.
func Open(ctx context.Context, cfg *config.Config) (Sink, error) {
	switch cfg.AuditBackend {
	case config.AuditFile, "":
		return OpenFileSink(cfg.AuditLogPath)
	case config.AuditSQLite:
		return OpenSQLiteSink(cfg.AuditSQLitePath)
	case config.AuditPostgres:
		if cfg.AuditPostgresDSN == "" {
			return nil, fmt.Errorf("audit: postgres backend requires a DSN")
		}
		return OpenPostgresSink(ctx, cfg.AuditPostgresDSN)
	case config.AuditRedis:
		return OpenRedisSink(ctx, cfg.AuditRedisAddr, cfg.AuditRedisStream)
	case config.AuditWebhook:
		if cfg.AuditWebhookURL == "" {
			return nil, fmt.Errorf("audit: webhook backend requires a URL")
		}
		return NewWebhookSink(cfg.AuditWebhookURL, cfg.AuditTimeout), nil
	default:
		return nil, fmt.Errorf("audit: unknown backend %q", cfg.AuditBackend)
	}
}
