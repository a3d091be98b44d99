package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/sources"
)

func testCommand(outdir string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("outdir", outdir, "")
	return cmd
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPreviousPath(t *testing.T) {
	t.Cleanup(viper.Reset)

	if got, want := previousPath(testCommand("reports")), filepath.Join("reports", "aggregated-reviews.json"); got != want {
		t.Fatalf("previousPath = %q, want %q", got, want)
	}
	if got := previousPath(testCommand("")); got != filepath.Join("out", "aggregated-reviews.json") {
		t.Fatalf("expected the default output directory, got %q", got)
	}

	viper.Set("paths.previous", "/data/last.json")
	if got := previousPath(testCommand("reports")); got != "/data/last.json" {
		t.Fatalf("expected the configured path, got %q", got)
	}
}

func TestLoadDumpsSkipsUnconfiguredSources(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()

	viper.Set("sources.g2", writeFile(t, dir, "g2.json", `[{"slug": "acme-health", "rating": 4.5, "reviewCount": 3}]`))

	dumps, err := loadDumps()
	if err != nil {
		t.Fatalf("loadDumps: %v", err)
	}
	if len(dumps) != 1 || len(dumps[model.SourceG2]) != 1 {
		t.Fatalf("expected only the g2 dump, got %v", dumps)
	}
	if _, ok := dumps[model.SourceCapterra]; ok {
		t.Fatal("an unconfigured source must not produce a dump")
	}
}

func TestLoadDumpsFailsOnUnusableDump(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()

	viper.Set("sources.g2", writeFile(t, dir, "g2.json", `[]`))
	viper.Set("sources.capterra", writeFile(t, dir, "capterra.json", `{"items": [`))
	if _, err := loadDumps(); !errors.Is(err, sources.ErrMalformedDump) {
		t.Fatalf("expected a malformed dump error, got %v", err)
	}

	viper.Set("sources.capterra", filepath.Join(dir, "missing.json"))
	if _, err := loadDumps(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a missing file error, got %v", err)
	}
}
