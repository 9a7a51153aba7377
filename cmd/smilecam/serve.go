package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/swdee/go-smilecam"
	"github.com/swdee/go-smilecam/affinity"
	"github.com/swdee/go-smilecam/config"
	"github.com/swdee/go-smilecam/ledger"
	"github.com/swdee/go-smilecam/pipeline"
	"github.com/swdee/go-smilecam/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the game against the camera and serve it over HTTP",
	Long: `Open the camera and run the smile game, streaming the annotated video and
game events to observers.  The process runs until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on, overrides the config file")
	serveCmd.Flags().String("camera", "", "Camera device index or video file, overrides the config file")
}

// driverConfig builds the pipeline settings from the configuration
func driverConfig(cfg *config.Config) (pipeline.Config, error) {

	dcfg, err := cfg.DriverConfig()

	if err != nil {
		return dcfg, err
	}

	dcfg.Game = cfg.GameParams()
	dcfg.Tolerance = cfg.Tolerance()
	dcfg.LabelPrefix = cfg.Tracker.LabelPrefix

	return dcfg, nil
}

// pinCores applies the configured CPU affinity, failure is not fatal
func pinCores(cfg *config.Config, log *zap.Logger) {

	cores, err := affinity.Resolve(cfg.CPU.Cores, cfg.CPU.Platform, cfg.CPU.CoreType)

	if err != nil || len(cores) == 0 {
		return
	}

	if err := affinity.Set(cores); err != nil {
		log.Warn("failed to set CPU affinity", zap.Ints("cores", cores), zap.Error(err))
		return
	}

	effective, err := affinity.Get()

	if err != nil {
		log.Warn("failed to read back CPU affinity", zap.Error(err))
		effective = cores
	}

	log.Info("pinned to CPU cores", zap.Ints("cores", effective))
}

func runServe(cmd *cobra.Command, args []string) (err error) {

	cfg, log, err := loadRuntime()

	if err != nil {
		return err
	}

	defer log.Sync()

	if addr := mustGetString(cmd, "addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	if camera := mustGetString(cmd, "camera"); camera != "" {
		cfg.Camera.Device = camera
	}

	dcfg, err := driverConfig(cfg)

	if err != nil {
		return err
	}

	pinCores(cfg, log)

	faces, smiles, err := openDetectors(cfg)

	if err != nil {
		return err
	}

	defer func() {
		err = multierr.Combine(err, faces.Close(), smiles.Close())
	}()

	// the game cannot start without a camera
	cam, err := pipeline.OpenCamera(cfg.Camera.Device)

	if err != nil {
		return errors.Wrap(err, "camera unavailable")
	}

	cam.SetSize(cfg.Camera.Width, cfg.Camera.Height)

	log.Info("camera opened", zap.String("device", cam.Device()),
		zap.String("face_cascade", faces.File()),
		zap.String("smile_cascade", smiles.File()),
	)

	events := make(chan smilecam.Event, cfg.Stream.EventBuffer)

	driver, err := pipeline.NewDriver(dcfg, cam, faces, smiles, events,
		pipeline.WithLogger(log.Named("pipeline")),
		pipeline.WithEncoder(pipeline.NewJPEGEncoder(cfg.Stream.JPEGQuality)),
	)

	if err != nil {
		cam.Close()
		return err
	}

	defer driver.Close()

	hub := web.NewHub(log.Named("hub"), cfg.Stream.SubscriberBuffer)

	var history web.History
	var book *ledger.Ledger

	if cfg.Ledger.Path != "" {
		book, err = ledger.Open(cfg.Ledger.Path, log.Named("ledger"))

		if err != nil {
			cam.Close()
			return err
		}

		defer book.Close()
		history = book
	}

	server := web.NewServer(cfg.Server.Addr, hub, driver, history, log.Named("web"))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// any part finishing brings the others down
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g := new(errgroup.Group)

	g.Go(func() error {
		defer cancel()
		return driver.Run(ctx)
	})

	g.Go(func() error {
		hub.Run(ctx, events)
		return nil
	})

	if book != nil {
		sub := hub.Subscribe("ledger", smilecam.EventPointsUpdate,
			smilecam.EventReward, smilecam.EventReset)

		g.Go(func() error {
			book.Consume(ctx, sub.Events())
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		return server.Start()
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		return server.Shutdown(shutdownCtx)
	})

	log.Info("smilecam running",
		zap.String("addr", cfg.Server.Addr),
		zap.Stringer("on_read_failure", dcfg.Policy),
	)

	return g.Wait()
}
