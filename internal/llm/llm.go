package llm

import "context"

// Segment is one part of a prompt sent to the generation backend.
// The set of implementations is fixed: MediaReference and TextInstruction.
type Segment interface {
	isSegment()
}

// MediaReference points the backend at video content by URL.
type MediaReference struct {
	URL string
}

// TextInstruction carries literal instruction text.
type TextInstruction struct {
	Text string
}

func (MediaReference) isSegment()  {}
func (TextInstruction) isSegment() {}

// Prompt is an ordered sequence of segments making up one generation
// request. Order is preserved on the wire: media context must come before
// the instruction that refers to it.
type Prompt []Segment

type Story struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// StoryOutput is the structured reply shape every successful generation
// call must conform to. Stories may be empty.
type StoryOutput struct {
	Stories []Story `json:"stories"`
}

type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (*StoryOutput, error)
}
