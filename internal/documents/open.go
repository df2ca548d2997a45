package documents

import (
	"context"
	"fmt"

	"github.com/matheus3301/chatroom/internal/config"
	"go.uber.org/zap"
)

// Open builds the Channel selected by cfg.Backend. The returned close
// function releases backend connections.
func Open(ctx context.Context, cfg config.DocumentsConfig, logger *zap.Logger) (Channel, func(context.Context) error, error) {
	switch cfg.Backend {
	case "mongo":
		return ConnectMongo(ctx, cfg.URI, cfg.Database, cfg.Collection, logger)
	case "redis":
		r, err := ConnectRedis(ctx, cfg.URI, cfg.Database+":"+cfg.Collection, logger)
		if err != nil {
			return nil, nil, err
		}
		return r, func(context.Context) error { return r.Close() }, nil
	case "memory", "":
		return NewMemory(), func(context.Context) error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown documents backend %q", cfg.Backend)
}
