package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360/semtransform/component"
	"github.com/c360/semtransform/componentregistry"
	"github.com/c360/semtransform/config"
	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/metric"
	"github.com/c360/semtransform/natsclient"
	"github.com/c360/semtransform/pkg/retry"
)

type runOptions struct {
	configPath      string
	shutdownTimeout time.Duration
	connectTimeout  time.Duration
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured processors on NATS",
		Long: `Load the configuration, connect to NATS, start every enabled component and
serve Prometheus metrics until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runPlatform(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", getEnv("SEMTRANSFORM_CONFIG", "semtransform.yaml"),
		"Path to configuration file (env: SEMTRANSFORM_CONFIG)")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout",
		getEnvDuration("SEMTRANSFORM_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: SEMTRANSFORM_SHUTDOWN_TIMEOUT)")
	cmd.Flags().DurationVar(&opts.connectTimeout, "connect-timeout",
		getEnvDuration("SEMTRANSFORM_CONNECT_TIMEOUT", time.Minute),
		"Time allowed to reach NATS at startup (env: SEMTRANSFORM_CONNECT_TIMEOUT)")
	return cmd
}

// runPlatform runs until ctx is cancelled or a long-running task fails.
func runPlatform(ctx context.Context, opts *runOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	slog.Info("Starting SemTransform",
		"version", Version,
		"build_time", BuildTime,
		"config_path", opts.configPath,
		"org", cfg.Platform.Org,
		"platform", cfg.Platform.ID,
		"environment", cfg.Platform.Environment)

	registry, err := newComponentRegistry()
	if err != nil {
		return err
	}
	metricsRegistry := metric.NewMetricsRegistry()

	natsClient, err := newNATSClient(cfg.NATS, metricsRegistry)
	if err != nil {
		return err
	}
	if err := connectToNATS(ctx, natsClient, opts.connectTimeout); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.NATS.DrainTimeout+5*time.Second)
		defer cancel()
		if err := natsClient.Close(closeCtx); err != nil {
			slog.Warn("NATS close failed", "error", err)
		}
	}()

	managed, err := createComponents(cfg, registry, component.Dependencies{
		NATSClient:      natsClient,
		MetricsRegistry: metricsRegistry,
		Logger:          slog.Default(),
		Platform:        cfg.PlatformMeta(),
	})
	if err != nil {
		return err
	}
	if len(managed) == 0 {
		slog.Warn("No enabled components in configuration")
	}

	groupCtx, cancelGroup := context.WithCancel(ctx)
	defer cancelGroup()
	g, gctx := errgroup.WithContext(groupCtx)
	if cfg.Metrics.Enabled {
		server := metric.NewServer(cfg.Metrics.Address, cfg.Metrics.Path, metricsRegistry)
		g.Go(func() error {
			slog.Info("Serving metrics", "address", cfg.Metrics.Address, "path", cfg.Metrics.Path)
			return server.Serve(gctx)
		})
	}

	// Components outlive gctx so that Stop can drain their queues.
	componentCtx, cancelComponents := context.WithCancel(context.Background())
	defer cancelComponents()

	startErr := startComponents(componentCtx, managed)
	if startErr != nil {
		cancelGroup()
	} else {
		slog.Info("SemTransform started", "components", len(managed))
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}

	waitErr := g.Wait()
	if startErr == nil {
		slog.Info("Shutting down", "timeout", opts.shutdownTimeout)
	}
	stopErr := stopComponents(managed, opts.shutdownTimeout)

	if err := stderrors.Join(startErr, waitErr, stopErr); err != nil {
		return err
	}
	slog.Info("SemTransform shutdown complete")
	return nil
}

// loadConfig loads and validates configuration from path.
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(true)
	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "CLI", "loadConfig", "load "+path)
	}
	return cfg, nil
}

func newComponentRegistry() (*component.Registry, error) {
	registry := component.NewRegistry()
	if err := componentregistry.Register(registry); err != nil {
		return nil, fmt.Errorf("register components: %w", err)
	}
	slog.Debug("Component factories registered", "factories", registry.ListComponentTypes())
	return registry, nil
}

func newNATSClient(cfg config.NATSConfig, metricsRegistry *metric.MetricsRegistry) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(slog.Default()),
		natsclient.WithMetrics(metricsRegistry),
		natsclient.WithMaxReconnects(cfg.MaxReconnects),
	}
	if cfg.Name != "" {
		opts = append(opts, natsclient.WithName(cfg.Name))
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.ReconnectWait))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, natsclient.WithTimeout(cfg.Timeout))
	}
	if cfg.DrainTimeout > 0 {
		opts = append(opts, natsclient.WithDrainTimeout(cfg.DrainTimeout))
	}
	if cfg.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.Token))
	}

	client, err := natsclient.NewClient(cfg.ServerURL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}
	return client, nil
}

// connectToNATS retries the initial connection until timeout elapses.
func connectToNATS(ctx context.Context, client *natsclient.Client, timeout time.Duration) error {
	connCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.Info("Connecting to NATS", "url", client.URL())
	attempt := 0
	attempts, err := retry.DoWithResult(connCtx, retry.Persistent(), func() (int, error) {
		attempt++
		if err := client.Connect(connCtx); err != nil {
			slog.Warn("NATS connection attempt failed", "attempt", attempt, "error", err)
			return attempt, err
		}
		return attempt, nil
	})
	if err != nil {
		return fmt.Errorf("connect to NATS after %d attempts: %w", attempts, err)
	}
	if err := client.WaitForConnection(connCtx); err != nil {
		return err
	}
	slog.Info("Connected to NATS", "url", client.URL(), "attempts", attempts)
	return nil
}

// createComponents builds every enabled component in instance-name order.
func createComponents(
	cfg *config.Config, registry *component.Registry, deps component.Dependencies,
) ([]*component.ManagedComponent, error) {
	enabled := cfg.EnabledComponents()
	names := slices.Sorted(maps.Keys(enabled))

	managed := make([]*component.ManagedComponent, 0, len(names))
	for i, name := range names {
		comp, err := registry.CreateComponent(name, enabled[name], deps)
		if err != nil {
			return nil, fmt.Errorf("create component %s: %w", name, err)
		}
		lc, ok := component.AsLifecycleComponent(comp)
		if !ok {
			return nil, errors.WrapInvalid(fmt.Errorf("component %s cannot be started", name),
				"CLI", "createComponents", "lifecycle check")
		}
		if err := lc.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize component %s: %w", name, err)
		}
		managed = append(managed, &component.ManagedComponent{
			Name:       name,
			Component:  lc,
			State:      component.StateInitialized,
			StartOrder: i,
		})
		slog.Debug("Created component", "name", name, "factory", enabled[name].Name)
	}
	return managed, nil
}

func startComponents(ctx context.Context, managed []*component.ManagedComponent) error {
	for _, mc := range managed {
		if err := mc.Component.Start(ctx); err != nil {
			mc.State = component.StateFailed
			mc.LastError = err
			return fmt.Errorf("start component %s: %w", mc.Name, err)
		}
		mc.State = component.StateStarted
		slog.Info("Started component", "name", mc.Name)
	}
	return nil
}

// stopComponents stops started components in reverse start order.
func stopComponents(managed []*component.ManagedComponent, timeout time.Duration) error {
	var errs []error
	for _, mc := range slices.Backward(managed) {
		if mc.State != component.StateStarted {
			continue
		}
		if err := mc.Component.Stop(timeout); err != nil {
			mc.State = component.StateFailed
			mc.LastError = err
			slog.Error("Error stopping component", "name", mc.Name, "error", err)
			errs = append(errs, fmt.Errorf("stop component %s: %w", mc.Name, err))
			continue
		}
		mc.State = component.StateStopped
	}
	return stderrors.Join(errs...)
}
