package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ubcspin/REMO1-dataProcessing/internal/config"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/analysis"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/api"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/archive"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/plot"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/recording"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

const version = "0.3.0"

// tagFlags collects repeated -tag k=v flags
type tagFlags map[string]string

func (t tagFlags) String() string {
	var parts []string
	for k, v := range t {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (t tagFlags) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || k == "" {
		return fmt.Errorf("tag must be in k=v form, got %q", value)
	}
	t[k] = v
	return nil
}

func main() {
	var (
		input    = flag.String("input", "", "path to the CSV recording to analyze")
		output   = flag.String("output", "", "path for the rendered plot PNG (default: input with .png extension)")
		noPlot   = flag.Bool("no-plot", false, "skip plot rendering")
		freq     = flag.Bool("freq", false, "compute frequency-domain measures")
		interp   = flag.Bool("interp-clipping", false, "interpolate clipped signal segments")
		enhance  = flag.Bool("enhance", false, "enhance peaks before analysis")
		segwise  = flag.Bool("reject-segmentwise", false, "reject low-quality 10-beat segments")
		archived = flag.Bool("archive", false, "store the analyzed recording in the local archive")
		serve    = flag.Bool("serve", false, "start the HTTP viewer over the archive")
		tags     = tagFlags{}
	)
	flag.Var(tags, "tag", "tag attached to the recording, k=v (repeatable)")
	flag.Parse()

	fmt.Printf("hrv v%s\n", version)
	fmt.Println("Heart-rate recording analysis")
	fmt.Println()

	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *serve {
		runServer(cfg)
		return
	}

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	opts := cfg.ToAnalysisOptions()
	opts.CalcFrequency = *freq
	opts.InterpolateClipping = *interp
	opts.HampelCorrect = *enhance
	opts.RejectSegmentwise = *segwise

	loadOpts := cfg.ToLoadOptions()
	loadOpts.Tags = tags

	log.Printf("Loading %s", *input)
	started := time.Now()

	rec, err := recording.Load(*input, loadOpts)
	if err != nil {
		log.Fatalf("Failed to load recording: %v", err)
	}
	log.Printf("Loaded %d samples at %.0f Hz", len(rec.Samples), rec.SampleRate)

	analyzer := analysis.NewAnalyzer(opts)
	res, err := analyzer.AnalyzeRecording(rec)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	log.Printf("Finished in %s", time.Since(started).Round(time.Millisecond))

	printMeasures(res, *freq)

	if !*noPlot {
		out := *output
		if out == "" {
			out = strings.TrimSuffix(*input, ".csv") + ".png"
		}
		if err := plot.RenderFile(out, res, plot.DefaultOptions()); err != nil {
			log.Fatalf("Failed to render plot: %v", err)
		}
		log.Printf("Plot written to %s", out)
	}

	if *archived {
		if err := storeResult(cfg, rec, res); err != nil {
			log.Fatalf("Failed to archive recording: %v", err)
		}
		log.Printf("Archived recording %s", rec.ID)
	}
}

// printMeasures prints the analysis summary to stdout
func printMeasures(res *analysis.Result, freq bool) {
	m := res.Measures
	fmt.Printf("beats:     %d accepted, %d rejected\n", len(res.AcceptedPeaks), len(res.RejectedPeaks))
	fmt.Printf("bpm:       %.2f\n", m.BPM)
	fmt.Printf("ibi:       %.2f ms\n", m.IBI)
	fmt.Printf("sdnn:      %.2f ms\n", m.SDNN)
	fmt.Printf("sdsd:      %.2f ms\n", m.SDSD)
	fmt.Printf("rmssd:     %.2f ms\n", m.RMSSD)
	fmt.Printf("pnn20:     %.4f\n", m.PNN20)
	fmt.Printf("pnn50:     %.4f\n", m.PNN50)
	fmt.Printf("mad rr:    %.2f ms\n", m.MADRR)
	fmt.Printf("breathing: %.4f Hz\n", m.BreathingRate)
	if freq {
		fmt.Printf("lf:        %.4f\n", m.LF)
		fmt.Printf("hf:        %.4f\n", m.HF)
		fmt.Printf("lf/hf:     %.4f\n", m.LFHF)
	}
}

// storeResult writes an analyzed recording into the local archive
func storeResult(cfg *config.Config, rec *types.Recording, res *analysis.Result) error {
	store, err := archive.Open(cfg.ToArchiveConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	entry := &types.ArchiveEntry{
		Recording:     *rec,
		Measures:      res.Measures.Sanitized(),
		Peaks:         res.AcceptedPeaks,
		RejectedPeaks: res.RejectedPeaks,
	}
	return store.Store(context.Background(), entry)
}

// runServer starts the HTTP viewer and blocks until interrupted
func runServer(cfg *config.Config) {
	log.Printf("Configuration loaded:")
	log.Printf("  Listen Address: %s", cfg.Server.ListenAddr)
	log.Printf("  Archive Path: %s", cfg.Archive.Path)
	log.Printf("  Compression Level: %d", cfg.Archive.CompressionLevel)

	log.Println("Opening archive...")
	store, err := archive.Open(cfg.ToArchiveConfig())
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}
	defer store.Close()

	cached := archive.NewCachedArchive(store, cfg.Archive.CacheSize, cfg.Archive.CacheTTL)
	analyzer := analysis.NewAnalyzer(cfg.ToAnalysisOptions())
	server := api.NewServer(cfg.Server.ListenAddr, cached, analyzer, cfg.ToLoadOptions())

	go func() {
		log.Printf("Viewer listening on %s", cfg.Server.ListenAddr)
		if err := server.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
