package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgnsrekt/readaloud/tts"
)

func TestDocumentFromArg(t *testing.T) {
	dir := t.TempDir()
	readme := filepath.Join(dir, "README.md")
	notes := filepath.Join(dir, "notes.txt")
	binary := filepath.Join(dir, "image.png")
	for _, p := range []string{readme, notes, binary} {
		if err := os.WriteFile(p, []byte("text"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	empty := filepath.Join(dir, "empty")
	if err := os.Mkdir(empty, 0o700); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		arg     string
		want    string
		wantErr bool
	}{
		{"markdown file", readme, readme, false},
		{"text file", notes, notes, false},
		{"directory with readme", dir, readme, false},
		{"directory without readme", empty, "", true},
		{"not markdown", binary, "", true},
		{"missing", filepath.Join(dir, "nope.md"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := documentFromArg(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected an error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		action  string
		args    []string
		want    tts.Request
		wantErr bool
	}{
		{"play", []string{"Hello", "there."}, tts.Request{Action: tts.ActionPlay, Text: "Hello there.", TabID: 3}, false},
		{"play", nil, tts.Request{Action: tts.ActionPlay, TabID: 3}, false},
		{"pause", nil, tts.Request{Action: tts.ActionPause, TabID: 3}, false},
		{"stop", nil, tts.Request{Action: tts.ActionStop, TabID: 3}, false},
		{"state", nil, tts.Request{Action: tts.ActionGetState, TabID: 3}, false},
		{"rate", []string{"1.5"}, tts.Request{Action: tts.ActionSetRate, Rate: 1.5, TabID: 3}, false},
		{"rate", []string{"fast"}, tts.Request{}, true},
		{"voice", []string{"en-us"}, tts.Request{Action: tts.ActionSetVoice, Voice: "en-us", TabID: 3}, false},
		{"voice", nil, tts.Request{}, true},
		{"toggle", nil, tts.Request{Action: tts.ActionToggle, TabID: 3}, false},
		{"rewind", nil, tts.Request{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			got, err := buildRequest(tt.action, tt.args, 3)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected an error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestChunkPlan(t *testing.T) {
	plan := chunkPlan("notes_1.md", []string{"First *one*.", "Second."})

	for _, want := range []string{
		"# notes\\_1.md",
		"2 chunks, 19 characters.",
		"1. First \\*one\\*. *(12)*",
		"2. Second. *(7)*",
	} {
		if !strings.Contains(plan, want) {
			t.Errorf("Expected %q in plan:\n%s", want, plan)
		}
	}

	if empty := chunkPlan("empty.md", nil); !strings.Contains(empty, "Nothing to read.") {
		t.Errorf("Expected an empty plan, got %q", empty)
	}
}

func TestDescribeState(t *testing.T) {
	snap := tts.Snapshot{
		PlaybackState: tts.StatePlaying,
		Chunks:        []string{"a", "b", "c"},
		ChunkIndex:    2,
		Rate:          1.5,
		Voice:         "en-us",
		TabID:         4,
	}
	got := describeState(snap)
	for _, want := range []string{"playing", "chunk 3 of 3", "rate 1.5", "voice en-us", "tab 4"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in %q", want, got)
		}
	}

	stopped := describeState(tts.Snapshot{Rate: 1})
	if strings.Contains(stopped, "chunk") || strings.Contains(stopped, "tab") {
		t.Errorf("Expected no chunk or tab when stopped, got %q", stopped)
	}
}

func TestVoiceTable(t *testing.T) {
	table := voiceTable([]tts.Voice{
		{ID: "en-us", Language: "en-US", Default: true},
		{ID: "Wavenet-A-long", Name: "Wavenet A", Language: "en-GB", Gender: "female"},
	})

	lines := strings.Split(strings.TrimSuffix(table, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if strings.Index(lines[0], "en-US") != strings.Index(lines[1], "en-GB") {
		t.Errorf("Expected aligned language column:\n%s", table)
	}
	if !strings.Contains(lines[0], "default") {
		t.Errorf("Expected default marker, got %q", lines[0])
	}
}
