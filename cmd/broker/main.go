package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/tessera/pkg/adapter"
	"github.com/cuemby/tessera/pkg/adminapi"
	"github.com/cuemby/tessera/pkg/broker"
	"github.com/cuemby/tessera/pkg/log"
	"github.com/cuemby/tessera/pkg/metrics"
	"github.com/cuemby/tessera/pkg/store"
	"github.com/rs/zerolog"
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
	Use:   "tessera-broker",
	Short: "tessera-broker hosts the data-flow broker's scheduling loop",
	Long: `tessera-broker listens for node connections, schedules registered
tasks against the time-series datastore, and exposes an admin surface
for health checks and metrics.`,
	Version: Version,
	RunE:    runBroker,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"tessera-broker version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.Flags().String("address", "0.0.0.0", "Address to bind the node-facing listener to")
	rootCmd.Flags().Int("port", 3000, "Port to bind the node-facing listener to")
	rootCmd.Flags().String("admin-grpc-address", "127.0.0.1:9091", "Address for the admin gRPC health service")
	rootCmd.Flags().String("admin-http-address", "127.0.0.1:9090", "Address for the admin HTTP (/health, /ready, /metrics) surface")
	rootCmd.Flags().Duration("tick-interval", 100*time.Millisecond, "Interval between scheduling ticks")

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

func runBroker(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("broker")

	address, _ := cmd.Flags().GetString("address")
	port, _ := cmd.Flags().GetInt("port")
	adminGRPCAddr, _ := cmd.Flags().GetString("admin-grpc-address")
	adminHTTPAddr, _ := cmd.Flags().GetString("admin-http-address")
	tickInterval, _ := cmd.Flags().GetDuration("tick-interval")

	ds := store.NewDatastore()
	cmdr := broker.NewLinearCommander()
	brk := broker.New(ds, cmdr)

	bindAddr := net.JoinHostPort(address, fmt.Sprintf("%d", port))
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return fmt.Errorf("broker: listen: %w", err)
	}
	logger.Info().Str("address", bindAddr).Msg("listening for node connections")

	connCh := make(chan net.Conn, 16)
	go acceptLoop(listener, connCh, logger)

	collector := metrics.NewCollector(
		func() map[string]int {
			counts := make(map[string]int)
			for _, st := range brk.Snapshot() {
				counts[st.Status.String()]++
			}
			return counts
		},
		ds.Len,
	)
	collector.Start()
	metrics.SetVersion(Version)
	metrics.RegisterComponent("broker", true, "scheduling")
	metrics.RegisterComponent("datastore", true, "ready")

	admin := adminapi.New()
	admin.SetServing(true)
	adminErrCh := make(chan error, 1)
	go func() {
		if err := admin.Start(adminGRPCAddr, adminHTTPAddr); err != nil {
			adminErrCh <- err
		}
	}()
	logger.Info().Str("grpc", adminGRPCAddr).Str("http", adminHTTPAddr).Msg("admin surface started")

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	adapterSeq := 0
	lastTick := time.Now()

	for {
		select {
		case conn := <-connCh:
			adapterSeq++
			id := fmt.Sprintf("node-%d", adapterSeq)
			side := adapter.NewTCPBrokerSide(conn)
			side.SetID(id)
			brk.RegisterAdapter(id, side)
			log.WithNodeID(id).Info().Str("remote", conn.RemoteAddr().String()).Msg("node connected")

		case now := <-ticker.C:
			delta := now.Sub(lastTick)
			lastTick = now
			if err := brk.Tick(delta); err != nil {
				logger.Error().Err(err).Msg("tick failed")
			}

		case err := <-adminErrCh:
			logger.Error().Err(err).Msg("admin surface error")
			sigCh <- syscall.SIGTERM

		case <-sigCh:
			logger.Info().Msg("shutting down")
			admin.Stop()
			collector.Stop()
			_ = listener.Close()
			logger.Info().Msg("shutdown complete")
			return nil
		}
	}
}

func acceptLoop(listener net.Listener, connCh chan<- net.Conn, logger zerolog.Logger) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Warn().Err(err).Msg("accept failed, stopping accept loop")
			return
		}
		connCh <- conn
	}
}
