package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clickwire/clickwire/pkg/client"
	"github.com/clickwire/clickwire/pkg/config"
	"github.com/clickwire/clickwire/pkg/json"
	"github.com/clickwire/clickwire/pkg/logger"
	"github.com/clickwire/clickwire/pkg/transport"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var (
		configPath string
		host       string
		database   string
		logLevel   string
		timeout    time.Duration
	)

	root := &cobra.Command{
		Use:     "clickwire",
		Short:   "Typed tabular client for the columnar store",
		Version: version,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration")
	root.PersistentFlags().StringVar(&host, "host", "localhost", "store host, optionally host:port")
	root.PersistentFlags().StringVar(&database, "database", "", "default database for unqualified tables")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	setup := func() (*client.Client, *transport.Pool, context.Context, error) {
		cfg := config.NewClientConfig("clickwire-cli", host)
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return nil, nil, nil, err
			}
			cfg = loaded
		}
		if database != "" {
			cfg.Connection.Database = database
		}
		cfg.Timeouts.Request = timeout
		cfg.Logging.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, nil, nil, err
		}

		if err := logger.Init(logger.Config{
			Level:    cfg.Logging.Level,
			Encoding: cfg.Logging.Encoding,
		}); err != nil {
			return nil, nil, nil, err
		}

		pool, err := transport.NewPool(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		ctx := context.WithValue(context.Background(), logger.SessionKey, cfg.Name)
		return client.New(pool, cfg), pool, ctx, nil
	}

	query := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a select and print the rows as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, pool, ctx, err := setup()
			if err != nil {
				return err
			}
			defer pool.Close()

			rows, err := cl.Select(ctx, args[0])
			if err != nil {
				return err
			}
			for _, row := range rows {
				native := make(map[string]interface{}, len(row))
				for name, v := range row {
					native[name] = v.Native()
				}
				line, err := json.Marshal(native)
				if err != nil {
					return err
				}
				fmt.Println(string(line))
			}
			return nil
		},
	}

	var insertFile string
	insert := &cobra.Command{
		Use:   "insert <table>",
		Short: "Store a JSON array of documents, extending the table schema as needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(insertFile) //nolint:gosec // G304: operator-supplied path
			if err != nil {
				return err
			}
			var documents []map[string]interface{}
			if err := json.Unmarshal(data, &documents); err != nil {
				return fmt.Errorf("input must be a JSON array of objects: %w", err)
			}

			cl, pool, ctx, err := setup()
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := cl.StoreDocuments(ctx, args[0], documents); err != nil {
				return err
			}
			logger.Info("documents stored",
				zap.String("table", args[0]),
				zap.Int("count", len(documents)))
			return nil
		},
	}
	insert.Flags().StringVarP(&insertFile, "file", "f", "", "JSON file holding an array of documents")
	_ = insert.MarkFlagRequired("file")

	schemaCmd := &cobra.Command{
		Use:   "schema <table>",
		Short: "Print the remote column schema of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, pool, ctx, err := setup()
			if err != nil {
				return err
			}
			defer pool.Close()

			remote, err := cl.GetSchema(ctx, args[0])
			if err != nil {
				return err
			}
			for _, col := range remote.Columns {
				fmt.Printf("%s\t%s\n", col.Name, col.Type)
			}
			return nil
		},
	}

	ping := &cobra.Command{
		Use:   "ping",
		Short: "Check that the store is responding",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, pool, ctx, err := setup()
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := cl.Ping(ctx); err != nil {
				return err
			}
			fmt.Println("Ok.")
			return nil
		},
	}

	root.AddCommand(query, insert, schemaCmd, ping)

	if err := root.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}
