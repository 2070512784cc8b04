package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Domenick1991/flightengine/config"
	"github.com/Domenick1991/flightengine/internal/bootstrap"
	"github.com/Domenick1991/flightengine/internal/cache"
	"github.com/Domenick1991/flightengine/internal/kafka"
	"github.com/Domenick1991/flightengine/internal/service/schedule"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "scheduleimport",
		Short:        "Apply schedule change feeds",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", defaultConfigPath(), "path to config file")
	root.AddCommand(newImportCmd(), newPublishCmd())
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(path)
}

func newImportCmd() *cobra.Command {
	var (
		file   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a feed file straight into the schedule store",
		Long: `Reads a comma separated feed (header row, then
operation,flight,from,to,dd/mm/yyyy,HH:MM,price rows) and applies it in one
transaction. Rows that fail validation are counted, not fatal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			text, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read feed: %w", err)
			}

			ctx := cmd.Context()
			storage, err := bootstrap.OpenStorage(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer storage.Close()

			var opts []schedule.ScheduleServiceOption
			if cfg.Redis.Enabled() {
				redisCache := cache.NewRedisCache(cfg.Redis, cfg.Search.CacheTTL())
				defer redisCache.Close()
				opts = append(opts, schedule.WithSearchInvalidator(redisCache))
			}
			if cfg.Kafka.Enabled() {
				producer := kafka.NewProducer(cfg.Kafka.Brokers)
				defer producer.Close()
				opts = append(opts, schedule.WithProducer(producer, cfg.Kafka.ScheduleEventsTopic))
			}

			result, err := schedule.NewScheduleService(storage.Catalog, storage.Schedules, opts...).ImportChanges(ctx, string(text))
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			return printResult(cmd, result, asJSON)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "feed file to import")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the result as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newPublishCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Send a feed file to the schedule feed topic for the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.Kafka.Enabled() {
				return errors.New("kafka.brokers is not configured")
			}
			text, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read feed: %w", err)
			}

			producer := kafka.NewProducer(cfg.Kafka.Brokers)
			defer producer.Close()
			if err := producer.PublishRaw(cmd.Context(), cfg.Kafka.ScheduleFeedTopic, filepath.Base(file), text); err != nil {
				return err
			}
			cmd.Printf("published %s to %s\n", file, cfg.Kafka.ScheduleFeedTopic)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "feed file to publish")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printResult(cmd *cobra.Command, result *schedule.ImportResult, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("batch %s\n", result.BatchID)
	cmd.Printf("  success:      %d\n", result.Success)
	cmd.Printf("  duplicates:   %d\n", result.Duplicates)
	cmd.Printf("  invalid:      %d\n", result.Invalid)
	cmd.Printf("  unrecognized: %d\n", result.Unrecognized)
	for _, r := range result.Rejected {
		cmd.Printf("  line %d: %s\n", r.Line, r.Reason)
	}
	return nil
}
