package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/reconscan/internal/builtin"
	"github.com/nao1215/reconscan/internal/config"
	"github.com/nao1215/reconscan/internal/crawler"
	rlog "github.com/nao1215/reconscan/internal/log"
	"github.com/nao1215/reconscan/internal/transport"
	"github.com/nao1215/reconscan/internal/worker"
)

// getPersistentBool retrieves a bool flag from the command or the root.
func getPersistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// newLogger creates the redacting logger selected by --verbose and --log-json.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getPersistentBool(cmd, "verbose")
	if getPersistentBool(cmd, "log-json") {
		return rlog.NewJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return rlog.NewLogger(cmd.ErrOrStderr(), verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// addNetworkFlags adds the flags shared by every command that runs workers.
func addNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .reconscan in current or home directory)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of a single worker invocation (0 disables it)")
	cmd.Flags().StringSlice("dns-server", nil,
		"DNS server for the dns/* workers (repeatable, default: system resolvers)")
	cmd.Flags().String("ports", "",
		"Ports scanned by net/port_scan, e.g. 22,80,8000-8100")
	cmd.Flags().StringSlice("worker-file", nil,
		"YAML worker definition to load (repeatable)")
	cmd.Flags().String("proxy", "",
		"Route worker connections through the SOCKS5 proxy at host:port")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route worker connections through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().Duration("dial-timeout", config.DefaultDialTimeout,
		"Timeout of a single network connection")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent by HTTP workers")
}

// loadConfig builds the configuration from defaults, the configuration file
// and the network flags. Flags override the file only when set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getPersistentBool(cmd, "verbose")

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	found := config.FindConfigFile(path)
	switch {
	case found != "":
		f, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		if err := cfg.Apply(f); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", found, err)
		}
		cfg.ConfigFilePath = found
	case path != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("dns-server") {
		if cfg.DNSServers, err = flags.GetStringSlice("dns-server"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("ports") {
		raw, err := flags.GetString("ports")
		if err != nil {
			return nil, err
		}
		if cfg.Ports, err = config.ParsePorts(raw); err != nil {
			return nil, err
		}
	}
	if flags.Changed("worker-file") {
		if cfg.WorkerFiles, err = flags.GetStringSlice("worker-file"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("tor") {
		if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
			return nil, err
		}
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.DialTimeout, err = flags.GetDuration("dial-timeout"); err != nil {
		return nil, err
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newTransport creates the client workers dial through: direct, a checked
// SOCKS5 proxy, or an embedded Tor daemon. The returned stop function must be
// called when the workers are done.
func newTransport(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*transport.Client, func(), error) {
	opts := []transport.Option{
		transport.WithTimeout(cfg.DialTimeout),
		transport.WithUserAgent(cfg.UserAgent),
	}

	switch {
	case cfg.UseTor:
		logger.Info("starting embedded Tor daemon (this may take a few minutes)...")
		tor := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := tor.Start(ctx); err != nil {
			return nil, nil, err
		}
		stop := func() {
			if err := tor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
		client, err := tor.NewClient(opts...)
		if err != nil {
			stop()
			return nil, nil, err
		}
		logger.Info("embedded Tor daemon ready", "socks", tor.SocksAddr())
		return client, stop, nil

	case cfg.ProxyAddress != "":
		client, err := transport.NewClient(append(opts, transport.WithProxy(cfg.ProxyAddress))...)
		if err != nil {
			return nil, nil, err
		}
		if status := client.CheckConnection(ctx); status != transport.ProxyStatusOK {
			return nil, nil, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, status.Err())
		}
		logger.Info("proxy connection verified", "proxy", cfg.ProxyAddress)
		return client, func() {}, nil

	default:
		client, err := transport.NewClient(opts...)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}
}

// newRegistry registers the built-in workers and the workers defined in
// cfg.WorkerFiles.
func newRegistry(cfg *config.Config, client *transport.Client, logger *slog.Logger) (*worker.Registry, error) {
	reg := worker.NewRegistry()
	env := builtin.Env{
		Client:   client,
		Resolver: builtin.NewResolver(cfg.DNSServers, builtin.WithResolverLogger(logger)),
		Ports:    cfg.Ports,
		SpiderOptions: []crawler.SpiderOption{
			crawler.WithMaxDepth(cfg.SpiderMaxDepth),
			crawler.WithMaxPages(cfg.SpiderMaxPages),
			crawler.WithIgnorePatterns(cfg.SpiderIgnore),
			crawler.WithFollowPatterns(cfg.SpiderFollow),
		},
		Logger: logger,
	}
	if err := builtin.Register(reg, env); err != nil {
		return nil, err
	}
	for _, path := range cfg.WorkerFiles {
		w, err := reg.LoadFromSource(path)
		if err != nil {
			return nil, err
		}
		id := w.Descriptor().ID
		if err := reg.Register(id, func() (worker.Worker, error) { return w, nil }); err != nil {
			return nil, fmt.Errorf("worker file %s: %w", path, err)
		}
		logger.Debug("loaded worker file", "path", path, "worker", id)
	}
	return reg, nil
}

// errUsage marks command line mistakes.
var errUsage = errors.New("usage error")
