package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/swdee/go-smilecam/config"
	"github.com/swdee/go-smilecam/detect"
	"github.com/swdee/go-smilecam/logging"
)

var (
	configFile  string
	logLevel    string
	logEncoding string
)

var rootCmd = &cobra.Command{
	Use:   "smilecam",
	Short: "A live camera game awarding points for smiles",
	Long: `smilecam watches a camera, gives every face it sees a label, and awards
points each time a labelled face smiles.  Reaching the reward threshold earns a
reward and starts the count again.  Annotated video and game events are
streamed to browsers over HTTP.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level [debug|info|warn|error], overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logEncoding, "log-encoding", "", "Log encoding [console|json], overrides the config file")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadRuntime reads the configuration and builds the logger
func loadRuntime() (*config.Config, *zap.Logger, error) {

	cfg, err := config.Load(configFile)

	if err != nil {
		return nil, nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if logEncoding != "" {
		cfg.Log.Encoding = logEncoding
	}

	log, err := logging.NewLogger("smilecam", cfg.Log.Level, cfg.Log.Encoding)

	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}

// openDetectors loads the face and smile cascades
func openDetectors(cfg *config.Config) (*detect.Cascade, *detect.Cascade, error) {

	faces, err := detect.NewCascade(cfg.Detector.FaceCascade, cfg.FaceParams())

	if err != nil {
		return nil, nil, err
	}

	smiles, err := detect.NewCascade(cfg.Detector.SmileCascade, cfg.SmileParams())

	if err != nil {
		faces.Close()
		return nil, nil, err
	}

	return faces, smiles, nil
}
