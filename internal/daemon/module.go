package daemon

import (
	"context"
	"time"

	"github.com/matheus3301/chatroom/internal/account"
	"github.com/matheus3301/chatroom/internal/api"
	"github.com/matheus3301/chatroom/internal/bootstrap"
	"github.com/matheus3301/chatroom/internal/bus"
	"github.com/matheus3301/chatroom/internal/config"
	"github.com/matheus3301/chatroom/internal/connectivity"
	"github.com/matheus3301/chatroom/internal/documents"
	"github.com/matheus3301/chatroom/internal/httpx"
	"github.com/matheus3301/chatroom/internal/identity"
	"github.com/matheus3301/chatroom/internal/lock"
	"github.com/matheus3301/chatroom/internal/logging"
	"github.com/matheus3301/chatroom/internal/profile"
	"github.com/matheus3301/chatroom/internal/send"
	"github.com/matheus3301/chatroom/internal/session"
	"github.com/matheus3301/chatroom/internal/status"
	"github.com/matheus3301/chatroom/internal/store"
	intsync "github.com/matheus3301/chatroom/internal/sync"
	"github.com/matheus3301/chatroom/internal/upload"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const uploadTimeout = 2 * time.Minute

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string // optional override for testing; empty = use default
	ConfigPath  string // optional override; empty = ~/.chatroom/config.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideCache,
			provideIdentity,
			provideDocuments,
			provideUploader,
			provideMonitor,
			provideReconciler,
			provideSender,
			provideBootstrapper,
			provideAccounts,
			provideController,
			provideService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = profile.ConfigPath()
	}
	return config.LoadOrDefault(path)
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName, cfg.Log.Level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is never opened by a
// second daemon.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.CacheDBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideCache(db *store.DB, logger *zap.Logger) *store.Cache {
	return store.NewCache(db, logger)
}

func provideIdentity(cfg *config.Config, db *store.DB, logger *zap.Logger) *identity.Client {
	httpClient := httpx.NewClient("identity", cfg.Breaker, cfg.Identity.Timeout(), logger)
	return identity.NewClient(httpClient, cfg.Identity, db, logger)
}

func provideDocuments(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (documents.Channel, error) {
	ch, closeFn, err := documents.Open(context.Background(), cfg.Documents, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("message channel ready", zap.String("backend", cfg.Documents.Backend))
	lc.Append(fx.Hook{OnStop: closeFn})
	return ch, nil
}

func provideUploader(cfg *config.Config, logger *zap.Logger) upload.Uploader {
	httpClient := httpx.NewClient("upload", cfg.Breaker, uploadTimeout, logger)
	up, err := upload.Open(context.Background(), cfg.Upload, httpClient)
	if err != nil {
		logger.Warn("image upload disabled", zap.Error(err))
		return upload.Unavailable{Err: err}
	}
	return up
}

func provideMonitor(cfg *config.Config, b *bus.Bus, logger *zap.Logger) *connectivity.Monitor {
	prober := &connectivity.DialProber{Targets: cfg.Connectivity.Targets}
	return connectivity.NewMonitor(prober, cfg.Connectivity.Interval(), cfg.Connectivity.Timeout(), b, logger)
}

func provideReconciler(ch documents.Channel, cache *store.Cache, m *status.Machine, b *bus.Bus, logger *zap.Logger) *intsync.Reconciler {
	return intsync.NewReconciler(ch, cache, m, b, logger)
}

// provideSender gates sends on the reconciler: a failed subscription counts
// as offline even while the network is up.
func provideSender(ch documents.Channel, up upload.Uploader, r *intsync.Reconciler, db *store.DB, cfg *config.Config, b *bus.Bus, logger *zap.Logger) *send.Sender {
	opts := send.ImageOptions{MaxWidth: cfg.Upload.MaxWidth, Quality: cfg.Upload.JPEGQuality}
	return send.NewSender(ch, up, r, db, opts, b, logger)
}

func provideBootstrapper(cache *store.Cache, idp *identity.Client, b *bus.Bus, logger *zap.Logger) *bootstrap.Bootstrapper {
	return bootstrap.New(cache, idp, b, logger)
}

func provideAccounts(idp *identity.Client, cache *store.Cache, logger *zap.Logger) *account.Service {
	return account.NewService(idp, cache, logger)
}

func provideController(boot *bootstrap.Bootstrapper, accounts *account.Service, r *intsync.Reconciler, s *send.Sender, mon *connectivity.Monitor, m *status.Machine, b *bus.Bus, logger *zap.Logger) *session.Controller {
	return session.NewController(boot, accounts, r, s, mon, m, b, logger)
}

func provideService(p Params, ctrl *session.Controller, mon *connectivity.Monitor, db *store.DB, b *bus.Bus, logger *zap.Logger) *api.Service {
	return api.NewService(p.ProfileName, ctrl, mon, db, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, mon *connectivity.Monitor, ctrl *session.Controller, logger *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Initial probe runs synchronously so the session starts from
			// the real connectivity.
			mon.Start(runCtx)

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			// Bootstrap may wait on the identity provider; serve status meanwhile.
			go func() {
				dest := ctrl.Start(runCtx)
				logger.Info("session ready", zap.String("destination", dest.String()))
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			ctrl.Stop()
			mon.Stop()
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
