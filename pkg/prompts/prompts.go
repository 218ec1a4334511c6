package prompts

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

// defaultInstruction asks for story title/message pairs grounded only in
// the video's visual content, answered in Japanese.
const defaultInstruction = `この動画の内容を視聴した上で、この動画を編集してストーリーとして伝えることができる、意味のあるメッセージや教訓を考えてください。
音声は考慮せずに、動画の映像情報のみを基にしてください。

例えば:
- 視聴者に伝えたい重要なポイント
- 動画から学べる教訓やインサイト
- 動画の本質的なメッセージ

{{.MinStories}}-{{.MaxStories}}つ程度、それぞれタイトル（短く簡潔に）と詳細なメッセージ（1-2文程度）のペアで、日本語で答えてください。
`

type Prompts struct {
	Story StoryPrompts `yaml:"story"`
}

type StoryPrompts struct {
	Instruction string `yaml:"instruction"`
}

type InstructionParams struct {
	MinStories int
	MaxStories int
}

// Load reads prompts.yaml when present and falls back to the built-in
// instruction otherwise.
func Load() (*Prompts, error) {
	return LoadFrom(defaultPromptsPath)
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	if p.Story.Instruction == "" {
		p.Story.Instruction = defaultInstruction
	}

	return &p, nil
}

func Default() *Prompts {
	return &Prompts{
		Story: StoryPrompts{Instruction: defaultInstruction},
	}
}

func (p *Prompts) RenderInstruction(params InstructionParams) (string, error) {
	return render(p.Story.Instruction, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
