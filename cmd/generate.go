package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"genstory/internal/batch"
	"genstory/internal/gemini"
	"genstory/internal/ingest"
	"genstory/internal/results"
	"genstory/internal/storage"
	"genstory/pkg/config"
	"genstory/pkg/prompts"
)

var (
	generateCSV      string
	generateOutput   string
	generateInterval time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate stories for every video in a CSV file",
	Long: `Read video records from a CSV file, generate stories for each one
sequentially with rate-limit pacing, and save the results as JSON.
Failed videos are recorded with a single story titled "Error" and never
abort the batch.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateCSV, "csv", "c", "", "CSV file with video records (required)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output JSON path (default results/<csv-name>.json)")
	generateCmd.Flags().DurationVarP(&generateInterval, "interval", "i", 0, "Pause between requests (default from config)")
	_ = generateCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.Load(ctx)
	if cfg.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is not set")
	}

	p, err := prompts.Load()
	if err != nil {
		return err
	}
	instruction, err := p.RenderInstruction(prompts.InstructionParams{
		MinStories: cfg.Content.MinStories,
		MaxStories: cfg.Content.MaxStories,
	})
	if err != nil {
		return err
	}

	generator, err := gemini.NewClient(ctx, gemini.Config{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.Gemini.Model,
	})
	if err != nil {
		return err
	}

	slog.Info("Loading video records", "csv", generateCSV)
	videos, err := ingest.LoadVideos(generateCSV)
	if err != nil {
		return err
	}
	slog.Info("Loaded video records", "count", len(videos))

	interval := generateInterval
	if interval == 0 {
		interval = time.Duration(cfg.Batch.IntervalSeconds) * time.Second
	}

	driver := batch.NewDriver(generator, batch.Options{
		Instruction: instruction,
		Interval:    interval,
	})

	records := driver.Run(ctx, videos)

	outputPath := generateOutput
	if outputPath == "" {
		outputPath = filepath.Join(cfg.Output.Dir, csvStem(generateCSV)+".json")
	}

	slog.Info("Saving results", "path", outputPath)
	if err := results.Save(records, outputPath); err != nil {
		return err
	}
	slog.Info("Results saved", "path", outputPath, "count", len(records))

	if cfg.GCSBucket != "" {
		archive, err := storage.NewGCSArchive(ctx, cfg.GCSBucket, cfg.GCS.Prefix, cfg.Output.CacheDir)
		if err != nil {
			slog.Error("Failed to open GCS archive", "error", err)
			return nil
		}
		defer func() { _ = archive.Close() }()

		location, err := archive.Upload(ctx, outputPath)
		if err != nil {
			slog.Error("Failed to mirror results to GCS", "error", err)
			return nil
		}
		slog.Info("Results mirrored", "location", location)
	}

	return nil
}

func csvStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
