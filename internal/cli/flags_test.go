package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func newFlagsCommand(f *optionFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	f.register(cmd)
	return cmd
}

func TestOptionFlagsResolve(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "export.toml")
	body := "title = \"From config\"\nformat = \"Letter\"\nmargin = 15.0\n"
	if err := os.WriteFile(config, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		args       []string
		wantTitle  string
		wantFormat string
		wantMargin float64
	}{
		{"no flags", nil, "", "", 0},
		{"flags only", []string{"--title", "Flag", "-f", "a4"}, "Flag", "a4", 0},
		{"config only", []string{"-c", config}, "From config", "Letter", 15},
		{"flag overrides config", []string{"-c", config, "--format", "A4"}, "From config", "A4", 15},
		{"explicit default overrides config", []string{"-c", config, "--margin", "10"}, "From config", "Letter", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f optionFlags
			cmd := newFlagsCommand(&f)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}
			opts, err := f.resolve(cmd.Flags())
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if opts.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", opts.Title, tt.wantTitle)
			}
			if opts.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", opts.Format, tt.wantFormat)
			}
			if opts.Margin != tt.wantMargin {
				t.Errorf("Margin = %v, want %v", opts.Margin, tt.wantMargin)
			}
		})
	}
}

func TestOptionFlagsResolveBadConfig(t *testing.T) {
	config := filepath.Join(t.TempDir(), "export.toml")
	if err := os.WriteFile(config, []byte("colour = \"red\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var f optionFlags
	cmd := newFlagsCommand(&f)
	if err := cmd.ParseFlags([]string{"--config", config}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.resolve(cmd.Flags()); err == nil {
		t.Error("expected error for unknown config key")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "report.json", "report.pdf"},
		{"", "dir/weekly.report.html", "dir/weekly.report.pdf"},
		{"", "noext", "noext.pdf"},
		{"out.pdf", "report.json", "out.pdf"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.output, tt.input); got != tt.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}
