package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"genstory/internal/results"
	"genstory/internal/storage"
	"genstory/pkg/config"
)

const watchBaseURL = "https://www.youtube.com/watch?v="

var (
	viewDir    string
	viewRemote bool
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	storyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse generated stories in the terminal",
	Long: `Pick a results file and a video, then display its metadata, stories and
watch URL. With --remote, results archived in the configured GCS bucket are
listed and downloaded into the local cache first.`,
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringVarP(&viewDir, "dir", "d", "", "Directory with results files (default from config)")
	viewCmd.Flags().BoolVarP(&viewRemote, "remote", "r", false, "Browse results archived in GCS")
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load(ctx)

	dir := viewDir
	if dir == "" {
		dir = cfg.Output.Dir
	}

	var path string
	var err error
	if viewRemote {
		path, err = pickRemoteFile(cmd, cfg)
	} else {
		path, err = pickLocalFile(dir)
	}
	if err != nil {
		return err
	}

	records, err := results.Load(path)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no records in %s", path)
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Loaded %d videos from %s", len(records), filepath.Base(path))))

	for {
		index, err := pickRecord(records)
		if err != nil {
			return err
		}

		printRecord(records[index])

		var again bool
		if err := huh.NewConfirm().
			Title("View another video?").
			Value(&again).
			Run(); err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

func pickLocalFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read results directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no results files in %s", dir)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	var selected string
	if err := huh.NewSelect[string]().
		Title("Results file").
		Options(huh.NewOptions(files...)...).
		Value(&selected).
		Run(); err != nil {
		return "", err
	}

	return filepath.Join(dir, selected), nil
}

func pickRemoteFile(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if cfg.GCSBucket == "" {
		return "", errors.New("GCS_BUCKET is not set")
	}

	ctx := cmd.Context()
	archive, err := storage.NewGCSArchive(ctx, cfg.GCSBucket, cfg.GCS.Prefix, cfg.Output.CacheDir)
	if err != nil {
		return "", err
	}
	defer func() { _ = archive.Close() }()

	objects, err := archive.List(ctx)
	if err != nil {
		return "", err
	}
	if len(objects) == 0 {
		return "", fmt.Errorf("no results in gs://%s/%s", cfg.GCSBucket, cfg.GCS.Prefix)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(objects)))

	var selected string
	if err := huh.NewSelect[string]().
		Title("Archived results file").
		Options(huh.NewOptions(objects...)...).
		Value(&selected).
		Run(); err != nil {
		return "", err
	}

	var path string
	var downloadErr error
	if err := spinner.New().
		Title("Downloading " + filepath.Base(selected)).
		Action(func() {
			path, downloadErr = archive.Download(ctx, selected)
		}).
		Run(); err != nil {
		return "", err
	}
	if downloadErr != nil {
		return "", downloadErr
	}

	return path, nil
}

func pickRecord(records []results.Record) (int, error) {
	options := make([]huh.Option[int], len(records))
	for i, rec := range records {
		name := rec.Title
		if name == "" {
			name = rec.VideoID
		}
		options[i] = huh.NewOption(fmt.Sprintf("%d. %s (%s)", i+1, name, rec.VideoID), i)
	}

	var index int
	if err := huh.NewSelect[int]().
		Title("Video").
		Options(options...).
		Value(&index).
		Run(); err != nil {
		return 0, err
	}

	return index, nil
}

func printRecord(rec results.Record) {
	var b strings.Builder

	name := rec.Title
	if name == "" {
		name = rec.VideoID
	}
	b.WriteString(headerStyle.Render(name) + "\n")

	b.WriteString(labelStyle.Render("Video ID: ") + rec.VideoID + "\n")
	b.WriteString(labelStyle.Render("Watch:    ") + watchBaseURL + rec.VideoID + "\n")
	if rec.Channel != "" {
		b.WriteString(labelStyle.Render("Channel:  ") + rec.Channel + "\n")
	}
	if rec.ParentCategory != "" {
		b.WriteString(labelStyle.Render("Category: ") + rec.ParentCategory + "\n")
	}
	if rec.FineCategory != "" {
		b.WriteString(labelStyle.Render("Fine:     ") + rec.FineCategory + "\n")
	}

	if len(rec.Stories) == 0 {
		b.WriteString("\n" + faintStyle.Render("No stories") + "\n")
	}
	for i, story := range rec.Stories {
		b.WriteString("\n" + storyStyle.Render(fmt.Sprintf("Story %d: %s", i+1, story.Title)) + "\n")
		b.WriteString("  " + story.Message + "\n")
	}

	fmt.Println(b.String())
}
