package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"whalecam/conf"
	"whalecam/datastore"
	"whalecam/detection"
	"whalecam/logging"
	"whalecam/server"
	"whalecam/tracking"
)

func rootCommand() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:          "whalecam",
		Short:        "Marine mammal video tracking: detect, smooth, annotate, log",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(serveCommand(&configPath, &debug))
	root.AddCommand(trackCommand(&configPath, &debug))

	return root
}

// loadSettings loads configuration and initializes logging and output
// directories; shared by both commands.
func loadSettings(configPath string, debug bool) (*conf.Settings, error) {
	settings, err := conf.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(settings.Server.LogFile, debug)

	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.MkdirAll(settings.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return settings, nil
}

// initDetector acquires the model if needed and initializes the best
// available inference provider. The returned manager is shared; trackers
// built on it stay per-session.
func initDetector(settings *conf.Settings) (*detection.ProviderManager, error) {
	if err := detection.EnsureModel(settings.Model.WeightsPath, settings.Model.URL); err != nil {
		return nil, err
	}

	pm := detection.NewProviderManager()
	err := pm.Initialize(detection.ModelOptions{
		WeightsPath:   settings.Model.WeightsPath,
		ConfigPath:    settings.Model.ConfigPath,
		NamesPath:     settings.Model.NamesPath,
		InputSize:     settings.Model.InputSize,
		ConfThreshold: settings.Model.ConfThreshold,
		NMSThreshold:  settings.Model.NMSThreshold,
	})
	if err != nil {
		return nil, err
	}
	return pm, nil
}

func trackerOptions(settings *conf.Settings) detection.TrackerOptions {
	opts := detection.DefaultTrackerOptions()
	opts.IoUThreshold = settings.Tracking.IoUThreshold
	opts.MaxLostFrames = settings.Tracking.MaxLostFrames
	return opts
}

func serveCommand(configPath *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tracking HTTP service (upload + live MJPEG streams)",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(*configPath, *debug)
			if err != nil {
				return err
			}

			pm, err := initDetector(settings)
			if err != nil {
				return err
			}
			defer pm.Close()

			ds, err := datastore.Open(settings.Server.DatabasePath)
			if err != nil {
				return err
			}

			opts := trackerOptions(settings)
			srv := server.New(settings, ds, func() (tracking.Tracker, error) {
				return detection.NewTracker(pm.GetProvider(), opts), nil
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				slog.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Echo.Shutdown(shutdownCtx)
			}
		},
	}
}

func trackCommand(configPath *string, debug *bool) *cobra.Command {
	var modelURL string

	cmd := &cobra.Command{
		Use:   "track <input-video> <output-video> <output-csv>",
		Short: "Track one video to completion, writing annotated video and CSV log",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, outputPath, csvPath := args[0], args[1], args[2]

			settings, err := loadSettings(*configPath, *debug)
			if err != nil {
				return err
			}
			if modelURL != "" {
				settings.Model.URL = modelURL
			}

			pm, err := initDetector(settings)
			if err != nil {
				return err
			}
			defer pm.Close()

			src, err := tracking.OpenSource(inputPath)
			if err != nil {
				return err
			}

			writer, err := tracking.OpenWriterSink(outputPath, src.FPS(), src.Width(), src.Height())
			if err != nil {
				src.Close()
				return err
			}

			sess, err := tracking.New(tracking.Config{
				Source:     src,
				Tracker:    detection.NewTracker(pm.GetProvider(), trackerOptions(settings)),
				Classes:    settings.Classes,
				LogPath:    csvPath,
				Alpha:      settings.Tracking.Alpha,
				FlushEvery: settings.Tracking.FlushEveryFrames,
			})
			if err != nil {
				src.Close()
				writer.Close()
				return err
			}
			sess.AddSink(writer)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := sess.Run(ctx); err != nil {
				return fmt.Errorf("tracking %s: %w", inputPath, err)
			}

			slog.Info("tracking complete",
				"frames", sess.Frames(), "rows", len(sess.Rows()))
			fmt.Printf("VIDEO_OUT=%s\n", writer.Path())
			fmt.Printf("CSV_OUT=%s\n", csvPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&modelURL, "model-url", "", "Download model weights from this URL when missing")

	return cmd
}
