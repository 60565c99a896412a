package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/flowmanager"
	"github.com/aretw0/flowmanager/internal/logging"
	fmhttp "github.com/aretw0/flowmanager/pkg/adapters/http"
	"github.com/aretw0/flowmanager/pkg/adapters/memory"
	"github.com/aretw0/flowmanager/pkg/adapters/redis"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/hub"
	"github.com/aretw0/flowmanager/pkg/observability"
	"github.com/aretw0/flowmanager/pkg/persistence/middleware"
	"github.com/aretw0/flowmanager/pkg/ports"
	"github.com/aretw0/flowmanager/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

// IO bundles the streams a command talks to.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Result is what a run prints in JSON mode.
type Result struct {
	FlowInstanceID string                 `json:"flowInstanceId"`
	Steps          []domain.ExecutionStep `json:"steps"`
	State          map[string]any         `json:"state"`
	Error          string                 `json:"error,omitempty"`
}

// Run executes the flow file named by cfg.Flow and prints its outcome.
func Run(ctx context.Context, cfg Config, stdio IO) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(stdio.Err, level, cfg.JSON)

	initial, err := cfg.initialState()
	if err != nil {
		return err
	}

	h := hub.New(hub.WithLogger(logger))

	store, locker, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	sessions := session.NewManager(store, sessionOpts...)

	defer observability.NewRecorder(sessions, observability.WithRecorderLogger(logger)).Attach(h)()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg, "")
	defer metrics.Attach(h)()

	if cfg.HTTPAddr != "" {
		stop := serve(cfg.HTTPAddr, h, store, reg, logger)
		defer stop()
	}

	opts := []flowmanager.Option{
		flowmanager.WithScope(Builtins(stdio.Out)),
		flowmanager.WithHub(h),
		flowmanager.WithLogger(logger),
		flowmanager.WithLifecycleHooks(observability.ChainHooks(metrics.Hooks(), debugHooks(logger))),
	}
	if initial != nil {
		opts = append(opts, flowmanager.WithInitialState(initial))
	}
	if cfg.Input != nil {
		opts = append(opts, flowmanager.WithInput(cfg.Input))
	}
	if cfg.Instance != "" {
		opts = append(opts, flowmanager.WithFlowInstanceID(cfg.Instance))
	}

	eng, err := flowmanager.NewFromFile(cfg.Flow, opts...)
	if err != nil {
		return err
	}

	if _, err := sessions.Begin(ctx, eng.FlowInstanceID()); err != nil {
		return err
	}

	stopPrompts := NewPrompter(h, stdio.In, stdio.Out, cfg.JSON, logger).Start(ctx)
	steps, runErr := eng.Run(ctx)
	stopPrompts()

	if runErr != nil {
		steps = eng.Steps()
	}
	if err := printResult(stdio.Out, cfg.JSON, eng, steps, runErr); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("flow %s failed: %w", eng.FlowInstanceID(), runErr)
	}
	return nil
}

func openStore(ctx context.Context, cfg Config) (ports.SnapshotStore, ports.DistributedLocker, func(), error) {
	var (
		store  ports.SnapshotStore
		locker ports.DistributedLocker
		closer = func() {}
	)

	if cfg.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		rs := redis.NewFromClient(client, opts...)
		if err := rs.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		store = rs
		locker = redis.NewLocker(client, rs.Prefix())
		closer = func() { _ = client.Close() }
	} else {
		store = memory.NewStore()
	}

	key, err := cfg.encryptionKey()
	if err != nil {
		closer()
		return nil, nil, nil, err
	}
	var mws []middleware.Middleware
	if len(cfg.MaskKeys) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.MaskKeys))
	}
	if key != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return middleware.Chain(store, mws...), locker, closer, nil
}

func serve(addr string, h *hub.Hub, store ports.SnapshotStore, reg prometheus.Gatherer, logger *slog.Logger) func() {
	api := fmhttp.NewServer(h,
		fmhttp.WithSnapshots(store),
		fmhttp.WithMetrics(reg),
		fmhttp.WithLogger(logger),
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("pause API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("pause API stopped", "err", err)
		}
	}()

	return func() {
		api.Close()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			_ = srv.Close()
		}
	}
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.HookEvent) {
			logger.Debug("Enter Node", "kind", e.Node.Kind, "node", e.Node.Label, "depth", e.Depth)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.HookEvent) {
			if e.Err != nil {
				logger.Debug("Leave Node (Error)", "kind", e.Node.Kind, "node", e.Node.Label, "err", e.Err)
				return
			}
			logger.Debug("Leave Node", "kind", e.Node.Kind, "node", e.Node.Label, "edges", e.Output.Edges, "duration", e.Duration)
		},
	}
}

func printResult(out io.Writer, jsonMode bool, eng *flowmanager.Engine, steps []domain.ExecutionStep, runErr error) error {
	if jsonMode {
		res := Result{
			FlowInstanceID: eng.FlowInstanceID(),
			Steps:          steps,
			State:          eng.State().GetState(),
		}
		if runErr != nil {
			res.Error = runErr.Error()
		}
		return json.NewEncoder(out).Encode(res)
	}

	for i, s := range steps {
		label := s.Node.Label
		if label == "" {
			label = s.Node.Name
		}
		fmt.Fprintf(out, "%d. %-9s %-20s %v\n", i+1, s.Node.Kind, label, s.Output.Edges)
	}
	state, err := json.Marshal(eng.State().GetState())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "state: %s\n", state)
	return nil
}
