package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"genstory/internal/ingest"
	"genstory/internal/llm"
	"genstory/internal/results"
)

type mockGenerator struct {
	outputs map[string]*llm.StoryOutput
	errs    map[string]error
	prompts []llm.Prompt
}

func (m *mockGenerator) Generate(_ context.Context, prompt llm.Prompt) (*llm.StoryOutput, error) {
	m.prompts = append(m.prompts, prompt)

	id := mediaURL(prompt)
	if err, ok := m.errs[id]; ok {
		return nil, err
	}
	if out, ok := m.outputs[id]; ok {
		return out, nil
	}
	return &llm.StoryOutput{Stories: []llm.Story{}}, nil
}

func mediaURL(prompt llm.Prompt) string {
	for _, seg := range prompt {
		if media, ok := seg.(llm.MediaReference); ok {
			return media.URL
		}
	}
	return ""
}

func newTestDriver(gen llm.Generator, pauses *int) *Driver {
	d := NewDriver(gen, Options{Instruction: "tell a story"})
	d.sleep = func(_ context.Context, _ time.Duration) {
		if pauses != nil {
			*pauses++
		}
	}
	return d
}

func TestRunPreservesOrderAndLength(t *testing.T) {
	tests := []struct {
		name  string
		count int
	}{
		{name: "empty", count: 0},
		{name: "single", count: 1},
		{name: "many", count: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videos := make([]ingest.VideoRecord, tt.count)
			for i := range videos {
				videos[i] = ingest.VideoRecord{VideoID: fmt.Sprintf("vid%d", i)}
			}

			driver := newTestDriver(&mockGenerator{}, nil)
			got := driver.Run(context.Background(), videos)

			if len(got) != tt.count {
				t.Fatalf("Run() returned %d records, want %d", len(got), tt.count)
			}
			for i, rec := range got {
				if rec.VideoID != videos[i].VideoID {
					t.Errorf("Run()[%d].VideoID = %q, want %q", i, rec.VideoID, videos[i].VideoID)
				}
			}
		})
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	gen := &mockGenerator{
		outputs: map[string]*llm.StoryOutput{
			defaultWatchBaseURL + "ok1": {Stories: []llm.Story{{Title: "T1", Message: "M1"}}},
			defaultWatchBaseURL + "ok2": {Stories: []llm.Story{{Title: "T2", Message: "M2"}}},
		},
		errs: map[string]error{
			defaultWatchBaseURL + "bad": errors.New("no response"),
		},
	}

	videos := []ingest.VideoRecord{
		{VideoID: "ok1"},
		{VideoID: "bad"},
		{VideoID: "ok2"},
	}

	driver := newTestDriver(gen, nil)
	got := driver.Run(context.Background(), videos)

	if len(got) != 3 {
		t.Fatalf("Run() returned %d records, want 3", len(got))
	}

	if got[0].Stories[0].Title != "T1" {
		t.Errorf("first record story = %+v, want T1", got[0].Stories[0])
	}

	failed := got[1]
	if len(failed.Stories) != 1 {
		t.Fatalf("failed record has %d stories, want exactly 1", len(failed.Stories))
	}
	if failed.Stories[0].Title != "Error" {
		t.Errorf("failed record story title = %q, want %q", failed.Stories[0].Title, "Error")
	}
	if failed.Stories[0].Message == "" {
		t.Error("failed record story message should not be empty")
	}

	if got[2].Stories[0].Title != "T2" {
		t.Errorf("record after failure = %+v, want T2", got[2].Stories[0])
	}
}

func TestRunPacing(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		wantPauses int
	}{
		{name: "noRecords", count: 0, wantPauses: 0},
		{name: "oneRecord", count: 1, wantPauses: 0},
		{name: "twoRecords", count: 2, wantPauses: 1},
		{name: "fiveRecords", count: 5, wantPauses: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videos := make([]ingest.VideoRecord, tt.count)
			for i := range videos {
				videos[i] = ingest.VideoRecord{VideoID: fmt.Sprintf("vid%d", i)}
			}

			var pauses int
			driver := newTestDriver(&mockGenerator{}, &pauses)
			driver.Run(context.Background(), videos)

			if pauses != tt.wantPauses {
				t.Errorf("Run() paused %d times, want %d", pauses, tt.wantPauses)
			}
		})
	}
}

func TestRunPromptShape(t *testing.T) {
	gen := &mockGenerator{}
	driver := newTestDriver(gen, nil)

	driver.Run(context.Background(), []ingest.VideoRecord{{VideoID: "abc123"}})

	if len(gen.prompts) != 1 {
		t.Fatalf("generator called %d times, want 1", len(gen.prompts))
	}

	prompt := gen.prompts[0]
	if len(prompt) != 2 {
		t.Fatalf("prompt has %d segments, want 2", len(prompt))
	}

	media, ok := prompt[0].(llm.MediaReference)
	if !ok {
		t.Fatalf("first segment is %T, want MediaReference", prompt[0])
	}
	if media.URL != defaultWatchBaseURL+"abc123" {
		t.Errorf("media URL = %q, want %q", media.URL, defaultWatchBaseURL+"abc123")
	}

	text, ok := prompt[1].(llm.TextInstruction)
	if !ok {
		t.Fatalf("second segment is %T, want TextInstruction", prompt[1])
	}
	if text.Text != "tell a story" {
		t.Errorf("instruction = %q, want %q", text.Text, "tell a story")
	}
}

func TestRunMetadataCarryThrough(t *testing.T) {
	videos := []ingest.VideoRecord{
		{VideoID: "abc123", Title: "Cat Video", Channel: "Cats Daily", ParentCategory: "Animals", FineCategory: "Cats"},
		{VideoID: "def456"},
	}

	driver := newTestDriver(&mockGenerator{}, nil)
	got := driver.Run(context.Background(), videos)

	first := got[0]
	if first.Title != "Cat Video" || first.Channel != "Cats Daily" ||
		first.ParentCategory != "Animals" || first.FineCategory != "Cats" {
		t.Errorf("metadata not carried through: %+v", first)
	}

	second := got[1]
	if second.Title != "" || second.Channel != "" {
		t.Errorf("absent metadata should stay empty: %+v", second)
	}
}

func TestRunNilStoriesBecomeEmptyList(t *testing.T) {
	gen := &mockGenerator{
		outputs: map[string]*llm.StoryOutput{
			defaultWatchBaseURL + "abc": {Stories: nil},
		},
	}

	driver := newTestDriver(gen, nil)
	got := driver.Run(context.Background(), []ingest.VideoRecord{{VideoID: "abc"}})

	if got[0].Stories == nil {
		t.Error("stories should be an empty list, not nil")
	}
}

// End-to-end: two CSV rows, one success and one failure, through the
// driver and the serializer.
func TestRunEndToEnd(t *testing.T) {
	csv := "video_id,title\nabc123,Cat Video\ndef456,\n"
	videos, err := ingest.ReadVideos(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadVideos() unexpected error: %v", err)
	}

	gen := &mockGenerator{
		outputs: map[string]*llm.StoryOutput{
			defaultWatchBaseURL + "abc123": {Stories: []llm.Story{{Title: "T1", Message: "M1"}}},
		},
		errs: map[string]error{
			defaultWatchBaseURL + "def456": errors.New("no response"),
		},
	}

	driver := newTestDriver(gen, nil)
	records := driver.Run(context.Background(), videos)

	path := filepath.Join(t.TempDir(), "stories.json")
	if err := results.Save(records, path); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	for _, want := range []string{
		`"video_id": "abc123"`,
		`"title": "Cat Video"`,
		`"title": "T1"`,
		`"message": "M1"`,
		`"video_id": "def456"`,
		`"title": "Error"`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("output missing %s:\n%s", want, content)
		}
	}

	loaded, err := results.Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d records, want 2", len(loaded))
	}
	if loaded[1].Title != "" {
		t.Errorf("record without input title should have none, got %q", loaded[1].Title)
	}
}
