package tasks

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"github.com/stevecastle/depthviz/dataset"
	"github.com/stevecastle/depthviz/depthmap"
	"github.com/stevecastle/depthviz/depthnet"
	"github.com/stevecastle/depthviz/render"
	"github.com/stevecastle/depthviz/sink"
	"github.com/stevecastle/depthviz/tensor"
)

// DepthVisualizationID is the status key reported by the visualizer.
const DepthVisualizationID = "depth_visualization_task"

// DefaultNumVideos is how many samples per split get rendered.
const DefaultNumVideos = 5

// ErrMissingMeta is returned for samples without a clip id and frame time.
var ErrMissingMeta = errors.New("sample is missing id/time metadata")

// Splits are visualized in this order.
var Splits = []string{"train", "val"}

// DepthVisualizer renders the predicted depth of a few samples per split.
type DepthVisualizer struct {
	NumVideos int
	Mean      [3]float32
	Std       [3]float32
	Log       logrus.FieldLogger
	Sink      sink.Sink
	Progress  func(split string, i, n int)

	OpenLoaders func(ctx context.Context, opts dataset.Options, splits ...string) ([]dataset.Loader, error)
}

// NewDepthVisualizer fills the visualizer from run arguments. Without an
// explicit sink, images go to args.Cache.
func NewDepthVisualizer(args Args) (*DepthVisualizer, error) {
	mean, std := frameStats(args.DatasetOptions.Image)
	v := &DepthVisualizer{
		NumVideos:   args.NumVideos,
		Mean:        mean,
		Std:         std,
		Log:         args.Log,
		Sink:        args.Sink,
		Progress:    args.Progress,
		OpenLoaders: dataset.Get,
	}
	if v.NumVideos <= 0 {
		v.NumVideos = DefaultNumVideos
	}
	if v.Log == nil {
		v.Log = logrus.StandardLogger()
	}
	if v.Sink == nil {
		d, err := sink.NewDir(args.Cache)
		if err != nil {
			return nil, err
		}
		v.Sink = d
	}
	return v, nil
}

// frameStats returns the mean and std the loader normalized frames with, or
// the ImageNet constants when none are set.
func frameStats(opts tensor.ImageOptions) (mean, std [3]float32) {
	mean, std = tensor.ImageNetMean, tensor.ImageNetStd
	if opts.Mean != ([3]float32{}) {
		mean = opts.Mean
	}
	if opts.Std != ([3]float32{}) {
		std = opts.Std
	}
	return mean, std
}

func depthVisualizationTask(ctx context.Context, model depthnet.Model, epoch int, args Args) (Status, error) {
	v, err := NewDepthVisualizer(args)
	if err != nil {
		return nil, err
	}
	return v.Run(ctx, model, epoch, args)
}

// Run visualizes the train split and then the val split.
func (v *DepthVisualizer) Run(ctx context.Context, model depthnet.Model, epoch int, args Args) (Status, error) {
	opts := args.DatasetOptions
	if opts.Name == "" {
		opts.Name = args.Dataset
	}
	loaders, err := v.OpenLoaders(ctx, opts, Splits...)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", opts.Name, err)
	}

	model.Eval()
	for i, loader := range loaders {
		if err := v.VisualizeAll(ctx, loader, model, epoch, args, Splits[i]); err != nil {
			return nil, err
		}
	}
	return Status{DepthVisualizationID: v.Sink.Location()}, nil
}

// VisualizeAll renders the first NumVideos samples of loader.
func (v *DepthVisualizer) VisualizeAll(ctx context.Context, loader dataset.Loader, model depthnet.Model, epoch int, args Args, split string) error {
	n := v.NumVideos
	if l := loader.Len(); l < n {
		n = l
	}
	device := "cuda"
	if args.CPU {
		device = "cpu"
	}
	log := v.Log.WithFields(logrus.Fields{"split": split, "epoch": epoch, "device": device})

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.visualize(ctx, loader, model, epoch, split, i, log); err != nil {
			return fmt.Errorf("%s sample %d: %w", split, i, err)
		}
		log.Infof("Visualization: [%d/%d]", i, v.NumVideos)
		if v.Progress != nil {
			v.Progress(split, i+1, n)
		}
	}
	return nil
}

func (v *DepthVisualizer) visualize(ctx context.Context, loader dataset.Loader, model depthnet.Model, epoch int, split string, i int, log logrus.FieldLogger) error {
	sample, err := loader.Get(ctx, i)
	if err != nil {
		return fmt.Errorf("failed to load sample: %w", err)
	}
	if len(sample.Meta) == 0 || sample.Meta[0].ID == "" || sample.Meta[0].Time == "" {
		return ErrMissingMeta
	}

	res, err := model.Forward(ctx, sample.Inputs, sample.Meta)
	if err != nil {
		return fmt.Errorf("forward pass failed: %w", err)
	}
	if res.Depth == nil {
		return fmt.Errorf("model returned no depth")
	}
	target := res.TargetImage
	if target == nil {
		target = sample.Inputs
	}

	frame, err := target.Item(0)
	if err != nil {
		return fmt.Errorf("target image: %w", err)
	}
	depthT, err := res.Depth.Item(0)
	if err != nil {
		return fmt.Errorf("depth: %w", err)
	}
	dm, err := depthmap.FromTensor(depthT)
	if err != nil {
		return err
	}

	stats, err := depthmap.ComputeStats(dm)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"min":    stats.Min,
		"max":    stats.Max,
		"mean":   stats.Mean,
		"median": stats.Median,
	}).Info("depth stats")

	original, err := render.FromFrame(frame, v.Mean, v.Std)
	if err != nil {
		return err
	}
	names := []string{"original"}
	tiles := []image.Image{original.Image()}
	for _, variant := range depthmap.Variants {
		names = append(names, variant.Name)
		tiles = append(tiles, render.FromDepth(variant.Fn(dm)).Image())
	}

	stem := Stem(split, epoch, sample.Meta[0])
	for j, img := range tiles {
		if err := v.Sink.Put(ctx, stem+"_"+names[j], img); err != nil {
			return err
		}
	}
	combined, err := render.Concat(tiles...)
	if err != nil {
		return err
	}
	return v.Sink.Put(ctx, stem+"_combined", combined)
}

// Stem builds "{split}_{epoch:03d}_{id}_{time}".
func Stem(split string, epoch int, meta dataset.Meta) string {
	return fmt.Sprintf("%s_%03d_%s_%s", split, epoch, meta.ID, meta.Time)
}
