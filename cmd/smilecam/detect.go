package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/swdee/go-smilecam"
	"github.com/swdee/go-smilecam/pipeline"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run one pass of the game over a still image",
	Long: `Run face and smile detection over a single image, print the identities
found with the points they would score, and write the annotated image.`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringP("image", "i", "", "Image file to run detection on")
	detectCmd.Flags().StringP("out", "o", "annotated.jpg", "The output JPG file with annotations")
	detectCmd.MarkFlagRequired("image")
}

func runDetect(cmd *cobra.Command, args []string) (err error) {

	cfg, log, err := loadRuntime()

	if err != nil {
		return err
	}

	defer log.Sync()

	dcfg, err := driverConfig(cfg)

	if err != nil {
		return err
	}

	// a still image is taken as is
	dcfg.Mirror = false
	dcfg.Width = 0
	dcfg.Height = 0
	dcfg.IdleSleep = 0
	dcfg.FrameEmitInterval = 0
	dcfg.DrawScoreboard = false

	faces, smiles, err := openDetectors(cfg)

	if err != nil {
		return err
	}

	defer func() {
		err = multierr.Combine(err, faces.Close(), smiles.Close())
	}()

	src, err := pipeline.LoadImageSource(mustGetString(cmd, "image"))

	if err != nil {
		return err
	}

	events := make(chan smilecam.Event, 64)

	driver, err := pipeline.NewDriver(dcfg, src, faces, smiles, events,
		pipeline.WithLogger(log.Named("pipeline")),
		pipeline.WithEncoder(pipeline.NewJPEGEncoder(cfg.Stream.JPEGQuality)),
	)

	if err != nil {
		src.Close()
		return err
	}

	defer driver.Close()

	if err := driver.Run(context.Background()); err != nil {
		return err
	}

	close(events)

	var frame []byte

	for ev := range events {
		if ev.Type == smilecam.EventFrame {
			frame = ev.JPEG
		}
	}

	if frame == nil {
		return errors.New("no annotated frame was produced")
	}

	snap := driver.Snapshot()

	fmt.Printf("Faces found: %d\n", len(snap.Faces))

	for _, f := range snap.Faces {
		smiling := "no"
		if f.Smiling {
			smiling = "yes"
		}
		fmt.Printf("  %s box=%v smiling=%s points=%d\n", f.ID, f.Box, smiling, snap.Points[f.ID])
	}

	out := mustGetString(cmd, "out")

	if err := os.WriteFile(out, frame, 0o644); err != nil {
		return errors.Wrap(err, "error writing annotated image")
	}

	fmt.Printf("Saved annotated image to %s\n", out)

	return nil
}
