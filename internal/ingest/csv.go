package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// VideoRecord is one row of input. Only VideoID is required; rows
// without it are skipped.
type VideoRecord struct {
	VideoID        string
	Title          string
	Channel        string
	ParentCategory string
	FineCategory   string
}

// LoadVideos reads video records from a CSV file with a header row.
// Columns other than video_id are optional and independently omittable.
func LoadVideos(path string) ([]VideoRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadVideos(f)
}

// ReadVideos parses CSV rows into video records.
func ReadVideos(r io.Reader) ([]VideoRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	if _, ok := columns["video_id"]; !ok {
		return nil, fmt.Errorf("csv has no video_id column")
	}

	var videos []VideoRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		videoID := field(row, columns, "video_id")
		if videoID == "" {
			continue
		}

		videos = append(videos, VideoRecord{
			VideoID:        videoID,
			Title:          field(row, columns, "title"),
			Channel:        field(row, columns, "channel"),
			ParentCategory: field(row, columns, "parent_category"),
			FineCategory:   field(row, columns, "fine_category"),
		})
	}

	return videos, nil
}

func field(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
