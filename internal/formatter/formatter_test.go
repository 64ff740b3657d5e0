package formatter

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/hanbin8269/spotify-vs/internal/models"
	"github.com/hanbin8269/spotify-vs/internal/shared"
	tu "github.com/hanbin8269/spotify-vs/internal/testing"
)

func sampleTracks() []models.Track {
	tracks := tu.MustTracks(2)
	preview := "https://p.scdn.co/mp3-preview/t1"
	tracks[1].PreviewURL = &preview
	tracks[1].Name = "Song, with comma"
	return tracks
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleTracks())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "ID,Name,Artists,AlbumArt,Preview,URL" {
			t.Errorf("unexpected headers %v", records[0])
		}
		if records[1][0] != "t0" || records[1][4] != "" {
			t.Errorf("unexpected first row %v", records[1])
		}
		if records[2][1] != "Song, with comma" || records[2][4] != "https://p.scdn.co/mp3-preview/t1" {
			t.Errorf("unexpected second row %v", records[2])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown("Round of 2", sampleTracks())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "# Round of 2\n") {
			t.Errorf("expected title heading, got %q", output)
		}
		if !strings.Contains(output, "**Tracks**: 2") {
			t.Error("expected track count")
		}
		if !strings.Contains(output, "1. Artist t0 - [Song t0](https://open.spotify.com/track/t0)\n") {
			t.Errorf("expected linked first track, got %q", output)
		}
		if !strings.Contains(output, "([preview](https://p.scdn.co/mp3-preview/t1))") {
			t.Error("expected preview link for the second track")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText("Draw", sampleTracks())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Tracks: 2") || !strings.Contains(output, "2. Artist t1 - Song, with comma\n") {
			t.Errorf("unexpected output %q", output)
		}
	})

	t.Run("empty", func(t *testing.T) {
		for _, f := range Formats {
			if _, err := Export(f, "Empty", nil); err != nil {
				t.Errorf("%s: unexpected error %v", f, err)
			}
		}
	})
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatText, "txt": FormatText, "CSV": FormatCSV, "md": FormatMarkdown, "markdown": FormatMarkdown}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q): expected %s, got %s (%v)", in, want, got, err)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := Export(Format("xml"), "", nil); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
