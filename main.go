package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shelterly/automation/agent"
	"github.com/shelterly/automation/analytics"
	"github.com/shelterly/automation/config"
	"github.com/shelterly/automation/console"
	"github.com/shelterly/automation/container"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cli struct {
	cfg config.Config
}

func setupFlags(cmd *cobra.Command) error {
	d := config.Default()
	flags := cmd.PersistentFlags()
	flags.String("config-file", "", "Path to config file.")
	flags.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	flags.String("storage-impl", string(d.StorageType), "implementation of record, flow and job storage")
	flags.String("sqlite-path", d.SqliteConfig.Path, "path of the sqlite database file")
	flags.String("queue-impl", string(d.QueueType), "implementation of the job queue: redis or memory")
	flags.String("redis-addr", strings.Join(d.RedisQueueConfig.Addrs, ","), "comma separated list of redis host:port")
	flags.String("redis-password", "", "redis password")
	flags.String("namespace", d.RedisQueueConfig.Namespace, "namespace of the queue keys in redis")
	flags.Int("partitions", d.RedisQueueConfig.PartitionCount, "number of queue partitions")
	flags.Int("http-port", d.HttpPort, "http port for rest endpoints")
	flags.Int("workers", d.ExecutorConfig.Workers, "number of job workers")
	flags.Int("batch-size", d.ExecutorConfig.BatchSize, "job messages taken from the queue per poll")
	flags.Duration("poll-interval", d.ExecutorConfig.PollInterval, "interval between queue polls")
	flags.Int("max-attempts", d.RetryConfig.MaxAttempts, "attempts per job before it fails")
	flags.Duration("retry-initial-interval", d.RetryConfig.InitialInterval, "wait before the first retry")
	flags.Duration("retry-max-interval", d.RetryConfig.MaxInterval, "longest wait between retries")
	flags.Float64("retry-multiplier", d.RetryConfig.Multiplier, "growth of the wait between retries")
	flags.Int("max-steps", d.EngineConfig.MaxSteps, "blocks one run may execute")
	flags.Bool("transactional-runs", d.EngineConfig.TransactionalRuns, "roll back every record write of a failed run")
	flags.String("analytics-collector", string(d.AnalyticsConfig.CollectorType), "analytics collector: log_file or nop")
	flags.String("analytics-file", d.AnalyticsConfig.FileName, "file the log_file collector writes to")
	flags.Duration("flow-cache-ttl", d.FlowCacheDuration, "how long triggerable flows are cached, 0 disables")
	return viper.BindPFlags(flags)
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	viper.SetEnvPrefix("AUTOMATION")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := readConfigFile(viper.GetViper(), viper.GetString("config-file")); err != nil {
		return err
	}

	c.cfg = config.Default()
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.SqliteConfig.Path = viper.GetString("sqlite-path")
	c.cfg.QueueType = config.QueueType(viper.GetString("queue-impl"))
	c.cfg.RedisQueueConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisQueueConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisQueueConfig.Namespace = viper.GetString("namespace")
	c.cfg.RedisQueueConfig.PartitionCount = viper.GetInt("partitions")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.ExecutorConfig.Workers = viper.GetInt("workers")
	c.cfg.ExecutorConfig.BatchSize = viper.GetInt("batch-size")
	c.cfg.ExecutorConfig.PollInterval = viper.GetDuration("poll-interval")
	c.cfg.RetryConfig.MaxAttempts = viper.GetInt("max-attempts")
	c.cfg.RetryConfig.InitialInterval = viper.GetDuration("retry-initial-interval")
	c.cfg.RetryConfig.MaxInterval = viper.GetDuration("retry-max-interval")
	c.cfg.RetryConfig.Multiplier = viper.GetFloat64("retry-multiplier")
	c.cfg.EngineConfig.MaxSteps = viper.GetInt("max-steps")
	c.cfg.EngineConfig.TransactionalRuns = viper.GetBool("transactional-runs")
	c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{
		CollectorType: analytics.ParseDataCollectorType(viper.GetString("analytics-collector")),
		FileName:      viper.GetString("analytics-file"),
	}
	c.cfg.FlowCacheDuration = viper.GetDuration("flow-cache-ttl")
	return logger.Init(c.cfg.LogLevel)
}

// readConfigFile merges path into v. A missing file is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (c *cli) serve(cmd *cobra.Command, args []string) error {
	a, err := agent.New(c.cfg)
	if err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return a.Shutdown()
}

// withContainer runs fn against a container built from the config and
// closes it afterwards.
func (c *cli) withContainer(fn func(ctx context.Context, d *container.DIContainer) error) error {
	d := container.NewDiContainer()
	if err := d.Init(c.cfg); err != nil {
		return err
	}
	defer d.Close()
	return fn(context.Background(), d)
}

func (c *cli) importFlow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	flow, err := model.DecodeFlowDefinition(data)
	if err != nil {
		return err
	}
	return c.withContainer(func(ctx context.Context, d *container.DIContainer) error {
		if err := d.GetStore().SaveFlow(ctx, flow); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported flow %q as %d\n", flow.Name, flow.Id)
		return nil
	})
}

func (c *cli) runFlow(cmd *cobra.Command, args []string) error {
	var flowId int64
	if _, err := fmt.Sscan(args[0], &flowId); err != nil {
		return fmt.Errorf("invalid flow id %q", args[0])
	}
	recordType, _ := cmd.Flags().GetString("record-type")
	recordId, _ := cmd.Flags().GetInt64("record-id")
	var ref *model.RecordRef
	if recordType != "" {
		ref = &model.RecordRef{Type: recordType, Id: recordId}
	}
	return c.withContainer(func(ctx context.Context, d *container.DIContainer) error {
		exec, runErr := d.GetEngine().ExecuteFlow(ctx, flowId, ref)
		if exec == nil {
			return runErr
		}
		out, err := json.MarshalIndent(exec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return runErr
	})
}

func (c *cli) listJobs(cmd *cobra.Command, args []string) error {
	organizationId, _ := cmd.Flags().GetInt64("organization")
	limit, _ := cmd.Flags().GetInt("limit")
	return c.withContainer(func(ctx context.Context, d *container.DIContainer) error {
		jobs, err := d.GetStore().ListJobs(ctx, organizationId, limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), console.RenderJobs(jobs))
		return nil
	})
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:               "automation",
		Short:             "Workflow automation engine for shelter records",
		PersistentPreRunE: c.setupConfig,
		SilenceUsage:      true,
	}

	serve := &cobra.Command{Use: "serve", Short: "Run the http api and the job executors", RunE: c.serve}

	flowCmd := &cobra.Command{Use: "flow", Short: "Manage flows"}
	importCmd := &cobra.Command{Use: "import <file>", Short: "Import a flow definition (yaml or json)", Args: cobra.ExactArgs(1), RunE: c.importFlow}
	runCmd := &cobra.Command{Use: "run <flow-id>", Short: "Run a flow now, without a job", Args: cobra.ExactArgs(1), RunE: c.runFlow}
	runCmd.Flags().String("record-type", "", "object api name of the trigger record")
	runCmd.Flags().Int64("record-id", 0, "id of the trigger record")
	flowCmd.AddCommand(importCmd, runCmd)

	jobsCmd := &cobra.Command{Use: "jobs", Short: "Inspect jobs"}
	listCmd := &cobra.Command{Use: "list", Short: "List the latest jobs of an organization", RunE: c.listJobs}
	listCmd.Flags().Int64("organization", 1, "organization id")
	listCmd.Flags().Int("limit", 20, "number of jobs to show")
	jobsCmd.AddCommand(listCmd)

	root.AddCommand(serve, flowCmd, jobsCmd)
	return root
}

func main() {
	c := &cli{}
	root := newRootCommand(c)
	if err := setupFlags(root); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
