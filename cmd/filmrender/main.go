package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/filmgallery/filmrender/internal/geometry"
	"github.com/filmgallery/filmrender/internal/lut"
	"github.com/filmgallery/filmrender/internal/render"
	"github.com/filmgallery/filmrender/internal/worker"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("filmrender %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	case "--help", "-h", "help":
		usage()
	case "worker":
		runWorker(os.Args[2:])
	case "preview", "export":
		runRender(os.Args[1], os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("filmrender - film-emulation render engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  filmrender preview -in <image> -out <file> [options]")
	fmt.Println("  filmrender export  -in <image> -out <file> [options]")
	fmt.Println("  filmrender worker  [-luts <dir or URL>]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  preview    Render a latency-optimized JPEG preview")
	fmt.Println("  export     Render at full quality in the requested format")
	fmt.Println("  worker     Serve render requests as JSON-RPC over stdin/stdout")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  FILMRENDER_LOG_LEVEL=debug    Enable per-stage debug logging")
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if os.Getenv("FILMRENDER_LOG_LEVEL") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func runWorker(args []string) {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	luts := fs.String("luts", "", "LUT asset source: directory or base URL")
	_ = fs.Parse(args)

	log := newLogger()
	w := &worker.Worker{
		Engine: &render.Engine{Log: log},
		LUTs:   lutStore(*luts),
	}

	if err := w.Run(context.Background(), os.Stdin, os.Stdout); err != nil {
		log.WithError(err).Fatal("worker stopped")
	}
}

func lutStore(source string) lut.Store {
	switch {
	case source == "":
		return nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return lut.HTTPStore{BaseURL: source}
	default:
		return lut.DirStore{Dir: source}
	}
}

func runRender(command string, args []string) {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	in := fs.String("in", "", "source image path or URL (required)")
	out := fs.String("out", "", "output file path (required)")
	format := fs.String("format", "jpeg", "output format: jpeg, png or tiff16 (export only)")
	quality := fs.Float64("quality", 0, "JPEG quality in (0,1]; 0 selects the flow default")
	maxWidth := fs.Int("max-width", 0, "export resolution bound; 0 selects the default")
	rotate := fs.Float64("rotate", 0, "rotation in degrees, clockwise")
	orientation := fs.Float64("orientation", 0, "orientation correction in degrees")
	crop := fs.String("crop", "", "normalized crop \"x,y,w,h\" in the rotated frame")
	exposure := fs.Float64("exposure", 0, "exposure in stops")
	contrast := fs.Float64("contrast", 0, "contrast in percent")
	lutPath := fs.String("lut", "", "path to a .cube LUT file")
	lutStrength := fs.Float64("lut-strength", 1, "LUT blend strength in (0,1]")
	_ = fs.Parse(args)

	log := newLogger()
	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "-in and -out are required")
		fs.Usage()
		os.Exit(2)
	}

	req := render.Request{
		Source:   *in,
		Format:   *format,
		Quality:  *quality,
		MaxWidth: *maxWidth,
	}
	req.Params.Geometry.RotationDegrees = *rotate
	req.Params.Geometry.OrientationDegrees = *orientation
	req.Params.Exposure = *exposure
	req.Params.Contrast = *contrast
	req.Params.LUTStrength = *lutStrength

	if *crop != "" {
		rect, err := parseCrop(*crop)
		if err != nil {
			log.WithError(err).Fatal("invalid -crop")
		}
		req.Params.Geometry.Crop = rect
	}

	if *lutPath != "" {
		raw, err := os.ReadFile(*lutPath)
		if err != nil {
			log.WithError(err).Fatal("reading LUT")
		}
		table := lut.Parse(string(raw))
		req.Params.LUT = &table
	}

	engine := &render.Engine{Log: log}

	var res render.Result
	if command == "preview" {
		res = engine.Preview(context.Background(), req)
	} else {
		res = engine.Export(context.Background(), req)
	}

	if !res.OK {
		log.WithError(res.Err).WithField("stage", string(res.FailedStage)).Fatal("render failed")
	}
	if res.Warning != "" {
		log.Warn(res.Warning)
	}

	if err := os.WriteFile(*out, res.Bytes, 0o644); err != nil {
		log.WithError(err).Fatal("writing output")
	}
	log.WithFields(logrus.Fields{
		"out":   *out,
		"size":  fmt.Sprintf("%dx%d", res.Width, res.Height),
		"type":  res.ContentType,
		"bytes": len(res.Bytes),
	}).Info("render complete")
}

func parseCrop(s string) (geometry.CropRect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.CropRect{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.CropRect{}, err
		}
		vals[i] = v
	}
	return geometry.CropRect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, nil
}
