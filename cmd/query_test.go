package cmd

import (
	"strings"
	"testing"
)

func TestParseQueryArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantQuestion string
		wantOpts     int
		wantErr      string
	}{
		{
			name:         "bare question",
			args:         []string{"do", "I", "need", "an", "ALT2"},
			wantQuestion: "do I need an ALT2",
		},
		{
			name:         "question with flags",
			args:         []string{"sprinkler", "requirements", "--top-k", "8", "--type", "building_code"},
			wantQuestion: "sprinkler requirements",
			wantOpts:     2,
		},
		{
			name:         "flags before question words",
			args:         []string{"--top-k", "3", "permit", "timeline"},
			wantQuestion: "permit timeline",
			wantOpts:     1,
		},
		{
			name:    "empty",
			args:    nil,
			wantErr: "usage:",
		},
		{
			name:    "top-k missing value",
			args:    []string{"question", "--top-k"},
			wantErr: "--top-k requires a value",
		},
		{
			name:    "top-k not a number",
			args:    []string{"question", "--top-k", "many"},
			wantErr: "invalid --top-k",
		},
		{
			name:    "type missing value",
			args:    []string{"question", "--type"},
			wantErr: "--type requires a value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			question, opts, err := parseQueryArgs(tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("parseQueryArgs() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseQueryArgs() failed: %v", err)
			}
			if question != tt.wantQuestion {
				t.Errorf("question = %q, want %q", question, tt.wantQuestion)
			}
			if len(opts) != tt.wantOpts {
				t.Errorf("got %d options, want %d", len(opts), tt.wantOpts)
			}
		})
	}
}
