package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stevecastle/depthviz/appconfig"
	"github.com/stevecastle/depthviz/sink"
)

func newFlagCmd(t *testing.T, args ...string) (*cobra.Command, *runOptions) {
	t.Helper()
	var o runOptions
	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().StringVar(&o.Dataset, "dataset", "", "")
	cmd.Flags().StringVar(&o.Cache, "cache", "", "")
	cmd.Flags().BoolVar(&o.CPU, "cpu", false, "")
	cmd.Flags().StringVar(&o.Model, "model", "", "")
	cmd.Flags().IntVar(&o.NumVideos, "num-videos", 5, "")
	cmd.Flags().StringVar(&o.S3Bucket, "s3-bucket", "", "")
	cmd.Flags().StringVar(&o.S3Prefix, "s3-prefix", "", "")
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	return cmd, &o
}

func TestApplyOverrides(t *testing.T) {
	cfg := appconfig.Config{Dataset: "kitti", Cache: "/from/config", NumVideos: 3, CPU: true}
	cmd, o := newFlagCmd(t, "--cache", "/from/flag", "--num-videos", "2")

	applyOverrides(&cfg, cmd, *o)

	if cfg.Cache != "/from/flag" {
		t.Errorf("Cache = %q; want flag value", cfg.Cache)
	}
	if cfg.NumVideos != 2 {
		t.Errorf("NumVideos = %d; want 2", cfg.NumVideos)
	}
	if cfg.Dataset != "kitti" {
		t.Errorf("Dataset = %q; unset flag should keep config value", cfg.Dataset)
	}
	if !cfg.CPU {
		t.Error("CPU should keep the config value when the flag is unset")
	}
}

func TestModelSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	body := `{"input_name": "img", "outputs": {"depth": "disp_0"}, "input_size": [3, 128, 416]}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := appconfig.Config{CPU: true}
	cfg.Model.ConfigPath = path
	cfg.Frame.Interpolation = "nearest"

	mopts, img, err := modelSettings(cfg)
	if err != nil {
		t.Fatalf("modelSettings() error = %v", err)
	}
	if mopts.InputName != "img" || mopts.DepthOutput != "disp_0" || !mopts.CPU {
		t.Errorf("model options = %+v", mopts)
	}
	if img.Width != 416 || img.Height != 128 {
		t.Errorf("image size = %dx%d; want 416x128", img.Width, img.Height)
	}
	if img.Interpolation != "nearest" {
		t.Errorf("Interpolation = %q; want nearest", img.Interpolation)
	}
}

func TestNewSinkLocalOnly(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "cache")
	s, err := newSink(context.Background(), appconfig.Config{Cache: cache}, "run-1")
	if err != nil {
		t.Fatalf("newSink() error = %v", err)
	}
	if _, ok := s.(*sink.Dir); !ok {
		t.Errorf("sink = %T; want *sink.Dir", s)
	}
	if s.Location() != cache {
		t.Errorf("Location() = %q; want %q", s.Location(), cache)
	}
}

func TestRunVisualizationRequiresModel(t *testing.T) {
	if err := runVisualization(context.Background(), appconfig.Config{Dataset: "kitti"}, runOptions{}); err == nil {
		t.Error("runVisualization() should fail without a model path")
	}
}

func TestInitLogger(t *testing.T) {
	l := logrus.New()
	initLogger(l, true)
	if l.GetLevel() != logrus.DebugLevel {
		t.Errorf("debug level = %v", l.GetLevel())
	}
	initLogger(l, false)
	if _, ok := l.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T; want JSON", l.Formatter)
	}
}
