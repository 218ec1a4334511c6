package batch

import (
	"context"
	"log/slog"
	"time"

	"genstory/internal/ingest"
	"genstory/internal/llm"
	"genstory/internal/results"
)

const (
	defaultWatchBaseURL = "https://www.youtube.com/watch?v="
	defaultInterval     = 2 * time.Second
)

// Driver turns video records into result records one by one, pacing
// successive backend calls and isolating per-record failures.
type Driver struct {
	gen          llm.Generator
	instruction  string
	interval     time.Duration
	watchBaseURL string

	sleep func(ctx context.Context, d time.Duration)
}

type Options struct {
	// Instruction is the fixed text sent with every video.
	Instruction string

	// Interval is the pause between successive requests. Defaults to 2s.
	Interval time.Duration

	// WatchBaseURL prefixes video IDs to form playable media URLs.
	WatchBaseURL string
}

func NewDriver(gen llm.Generator, opts Options) *Driver {
	if opts.Interval == 0 {
		opts.Interval = defaultInterval
	}
	if opts.WatchBaseURL == "" {
		opts.WatchBaseURL = defaultWatchBaseURL
	}

	return &Driver{
		gen:          gen,
		instruction:  opts.Instruction,
		interval:     opts.Interval,
		watchBaseURL: opts.WatchBaseURL,
		sleep:        wait,
	}
}

// Run processes records strictly in input order and returns one result
// per record, index-aligned with the input. A failed generation becomes a
// single synthetic story titled "Error"; it never aborts the batch.
// After every record except the last, Run pauses for the configured
// interval to respect backend rate limits.
func (d *Driver) Run(ctx context.Context, videos []ingest.VideoRecord) []results.Record {
	out := make([]results.Record, 0, len(videos))
	total := len(videos)

	for i, video := range videos {
		slog.Info("Generating stories",
			"index", i+1,
			"total", total,
			"video_id", video.VideoID,
			"title", video.Title,
		)

		rec := results.Record{
			VideoID:        video.VideoID,
			Title:          video.Title,
			Channel:        video.Channel,
			ParentCategory: video.ParentCategory,
			FineCategory:   video.FineCategory,
		}

		prompt := llm.Prompt{
			llm.MediaReference{URL: d.watchBaseURL + video.VideoID},
			llm.TextInstruction{Text: d.instruction},
		}

		output, err := d.gen.Generate(ctx, prompt)
		if err != nil {
			slog.Error("Generation failed", "video_id", video.VideoID, "error", err)
			rec.Stories = []llm.Story{{Title: "Error", Message: err.Error()}}
		} else {
			rec.Stories = output.Stories
			if rec.Stories == nil {
				rec.Stories = []llm.Story{}
			}
		}

		out = append(out, rec)

		if i < total-1 {
			slog.Debug("Waiting before next request", "interval", d.interval)
			d.sleep(ctx, d.interval)
		}
	}

	return out
}

func wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
