package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/tessera/pkg/adapter"
	"github.com/cuemby/tessera/pkg/log"
	"github.com/cuemby/tessera/pkg/node"
	"github.com/cuemby/tessera/pkg/topic"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tessera-node",
	Short: "tessera-node connects to a broker and executes registered tasks",
	Long: `tessera-node dials a broker's TCP listener, registers tasks, and
runs their OnExecute callbacks whenever the broker dispatches them.`,
	Version: Version,
	RunE:    runNode,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"tessera-node version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.Flags().String("address", "127.0.0.1", "Broker address to connect to")
	rootCmd.Flags().Int("port", 3000, "Broker port to connect to")
	rootCmd.Flags().Duration("tick-interval", 50*time.Millisecond, "Interval between node drain ticks")
	rootCmd.Flags().String("tasks-file", "", "YAML file declaring additional TickerTask instances to host")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func runNode(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("node")

	address, _ := cmd.Flags().GetString("address")
	port, _ := cmd.Flags().GetInt("port")
	tickInterval, _ := cmd.Flags().GetDuration("tick-interval")
	tasksFilePath, _ := cmd.Flags().GetString("tasks-file")

	brokerAddr := net.JoinHostPort(address, fmt.Sprintf("%d", port))
	conn, err := net.Dial("tcp", brokerAddr)
	if err != nil {
		return fmt.Errorf("node: dial broker: %w", err)
	}
	logger.Info().Str("broker", brokerAddr).Msg("connected")

	side := adapter.NewTCPNodeSide(conn)
	side.SetID("broker")
	n := node.NewBrokerNode(side)

	heartbeat := node.NewTickerTask(1, adapter.Trigger{Kind: adapter.Always}, topic.Parse("node/heartbeat/count"))
	if err := n.AddTask(heartbeat); err != nil {
		return fmt.Errorf("node: add task: %w", err)
	}

	if tasksFilePath != "" {
		extra, err := loadTasksFile(tasksFilePath)
		if err != nil {
			return fmt.Errorf("node: load tasks file: %w", err)
		}
		for _, task := range extra {
			if err := n.AddTask(task); err != nil {
				return fmt.Errorf("node: add task from tasks file: %w", err)
			}
		}
		logger.Info().Int("count", len(extra)).Str("path", tasksFilePath).Msg("loaded tasks from file")
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := n.Tick(); err != nil {
				logger.Warn().Err(err).Msg("tick failed")
			}

		case <-sigCh:
			logger.Info().Msg("shutting down")
			_ = conn.Close()
			logger.Info().Msg("shutdown complete")
			return nil
		}
	}
}
