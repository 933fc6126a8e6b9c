// Command localstore reads and writes namespaced JSON entries in a configured store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"code.byted.org/khicago/localstore"
	"code.byted.org/khicago/localstore/ddbstore"
	"code.byted.org/khicago/localstore/internal/config"
	"code.byted.org/khicago/localstore/sqlitestore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the root command has run.
type app struct {
	configPath string
	namespace  string
	verbose    bool

	logger  *zap.Logger
	storage *localstore.Storage
	closer  func() error
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "localstore",
		Short:         "Inspect and edit a namespaced JSON key-value store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "localstore.yaml", "path to the YAML config file")
	root.PersistentFlags().StringVarP(&a.namespace, "namespace", "n", "", "scope key operations to this namespace")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newGetCmd(a),
		newSetCmd(a),
		newRemoveCmd(a),
		newHasCmd(a),
		newKeysCmd(a),
		newClearCmd(a),
		newMGetCmd(a),
		newMSetCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.namespace == "" {
		a.namespace = cfg.Namespace
	}

	a.logger, err = cfg.Logging.NewLogger(a.verbose)
	if err != nil {
		return err
	}

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	a.closer = closer
	a.storage = localstore.New(store, localstore.WithLogger(a.logger))
	a.logger.Debug("store opened",
		zap.String("backend", cfg.Backend),
		zap.String("namespace", a.namespace))
	return nil
}

// close flushes the logger and releases the store. Safe to call more than once.
func (a *app) close() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.closer == nil {
		return nil
	}
	closer := a.closer
	a.closer = nil
	return closer()
}

// execute runs root and always releases what the root command opened,
// including when a subcommand fails.
func execute(ctx context.Context, a *app, root *cobra.Command) (err error) {
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	return root.ExecuteContext(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (localstore.KeyValueStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := sqlitestore.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendDynamoDB:
		client, err := ddbstore.NewClient(ctx, ddbstore.ClientConfig{
			Region:          cfg.DynamoDB.Region,
			AccessKeyID:     cfg.DynamoDB.AccessKeyID,
			SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
			Endpoint:        cfg.DynamoDB.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		s, err := ddbstore.New(client, cfg.DynamoDB.Table, ddbstore.WithPartition(cfg.DynamoDB.Partition))
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	default:
		return localstore.NewMemory(localstore.WithQuota(cfg.Memory.QuotaBytes)), noop, nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	if err := execute(ctx, a, newRootCmd(a)); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
