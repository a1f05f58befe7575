package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stevecastle/depthviz/appconfig"
	"github.com/stevecastle/depthviz/dataset"
	"github.com/stevecastle/depthviz/depthnet"
	"github.com/stevecastle/depthviz/sink"
	"github.com/stevecastle/depthviz/tasks"
	"github.com/stevecastle/depthviz/tensor"
)

type runOptions struct {
	Dataset   string
	Cache     string
	CPU       bool
	Epoch     int
	Model     string
	NumVideos int
	S3Bucket  string
	S3Prefix  string
	Open      bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Render depth visualizations for the train and val splits",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyOverrides(&cfg, cmd, runOpts)
		return runVisualization(cmd.Context(), cfg, runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.Dataset, "dataset", "d", "", "Dataset name")
	f.StringVarP(&runOpts.Cache, "cache", "c", "", "Output directory for rendered images")
	f.BoolVar(&runOpts.CPU, "cpu", false, "Run inference on the CPU")
	f.IntVarP(&runOpts.Epoch, "epoch", "e", 0, "Epoch number used in file names")
	f.StringVarP(&runOpts.Model, "model", "m", "", "Path to the ONNX depth model")
	f.IntVarP(&runOpts.NumVideos, "num-videos", "n", appconfig.DefaultNumVideos, "Samples rendered per split")
	f.StringVar(&runOpts.S3Bucket, "s3-bucket", "", "Also upload images to this S3 bucket")
	f.StringVar(&runOpts.S3Prefix, "s3-prefix", "", "Key prefix for uploads (default: run id)")
	f.BoolVar(&runOpts.Open, "open", false, "Open the cache directory when done")
	rootCmd.AddCommand(runCmd)
}

// applyOverrides copies explicitly set flags over the config file values.
func applyOverrides(cfg *appconfig.Config, cmd *cobra.Command, o runOptions) {
	changed := cmd.Flags().Changed
	if changed("dataset") {
		cfg.Dataset = o.Dataset
	}
	if changed("cache") {
		cfg.Cache = o.Cache
	}
	if changed("cpu") {
		cfg.CPU = o.CPU
	}
	if changed("model") {
		cfg.Model.Path = o.Model
	}
	if changed("num-videos") {
		cfg.NumVideos = o.NumVideos
	}
	if changed("s3-bucket") {
		cfg.S3.Bucket = o.S3Bucket
	}
	if changed("s3-prefix") {
		cfg.S3.Prefix = o.S3Prefix
	}
}

// modelSettings derives the network and frame preprocessing options.
func modelSettings(cfg appconfig.Config) (depthnet.Options, tensor.ImageOptions, error) {
	mopts := depthnet.DefaultOptions()
	mopts.ORTSharedLibraryPath = cfg.Model.ORTSharedLibraryPath
	mopts.CPU = cfg.CPU
	mopts.DeviceID = cfg.Model.DeviceID

	img := tensor.DefaultImageOptions()
	img.Width = cfg.Frame.Width
	img.Height = cfg.Frame.Height
	if cfg.Frame.Interpolation != "" {
		img.Interpolation = cfg.Frame.Interpolation
	}

	if cfg.Model.ConfigPath != "" {
		mc, err := depthnet.LoadModelConfig(cfg.Model.ConfigPath)
		if err != nil {
			return mopts, img, err
		}
		mc.ApplyToOptions(&mopts)
		mc.ApplyToImageOptions(&img)
	}
	return mopts, img, nil
}

func newSink(ctx context.Context, cfg appconfig.Config, runID string) (sink.Sink, error) {
	dir, err := sink.NewDir(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if cfg.S3.Bucket == "" {
		return dir, nil
	}
	prefix := cfg.S3.Prefix
	if prefix == "" {
		prefix = runID
	}
	remote, err := sink.NewS3(ctx, sink.S3Options{
		Bucket:          cfg.S3.Bucket,
		Prefix:          prefix,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	return sink.Tee{dir, remote}, nil
}

// progressBars shows one bar per split on stderr.
func progressBars() func(split string, i, n int) {
	var (
		bar     *progressbar.ProgressBar
		current string
	)
	return func(split string, i, n int) {
		if bar == nil || split != current {
			current = split
			bar = progressbar.NewOptions(n,
				progressbar.OptionSetDescription("Rendering "+split),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
			)
		}
		_ = bar.Set(i)
	}
}

func runVisualization(ctx context.Context, cfg appconfig.Config, o runOptions) error {
	if cfg.Model.Path == "" {
		return errors.New("no model configured; pass --model or set model.path in the config")
	}
	if cfg.Dataset == "" {
		return errors.New("no dataset configured; pass --dataset")
	}

	runID := uuid.New().String()
	log := logger.WithFields(logrus.Fields{"run": runID, "dataset": cfg.Dataset, "epoch": o.Epoch})

	mopts, img, err := modelSettings(cfg)
	if err != nil {
		return err
	}
	model, err := depthnet.NewONNX(cfg.Model.Path, mopts)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	defer model.Close()

	out, err := newSink(ctx, cfg, runID)
	if err != nil {
		return err
	}

	args := tasks.Args{
		Dataset:   cfg.Dataset,
		Cache:     cfg.Cache,
		CPU:       cfg.CPU,
		NumVideos: cfg.NumVideos,
		DatasetOptions: dataset.Options{
			Name:      cfg.Dataset,
			IndexPath: cfg.IndexPath,
			Image:     img,
		},
		Sink:     out,
		Log:      log,
		Progress: progressBars(),
	}
	log.Info("starting evaluation tasks")
	status, err := tasks.RunAll(ctx, cfg.Tasks, model, o.Epoch, args)
	if err != nil {
		return err
	}
	for id, location := range status {
		log.WithField("task", id).Infof("output written to %s", location)
	}

	if o.Open {
		if err := browser.OpenFile(cfg.Cache); err != nil {
			log.WithError(err).Warn("failed to open cache directory")
		}
	}
	return nil
}
