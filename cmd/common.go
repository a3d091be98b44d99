package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/vendorscope/internal/utils"
	"github.com/sw33tLie/vendorscope/pkg/aggregate"
	"github.com/sw33tLie/vendorscope/pkg/content"
	"github.com/sw33tLie/vendorscope/pkg/discovery"
	"github.com/sw33tLie/vendorscope/pkg/evidence"
	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/pipeline"
	"github.com/sw33tLie/vendorscope/pkg/registry"
	"github.com/sw33tLie/vendorscope/pkg/sources"
	"github.com/sw33tLie/vendorscope/pkg/storage"
	"github.com/sw33tLie/vendorscope/pkg/whttp"
	"github.com/tidwall/gjson"
)

func outDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("outdir")
	if dir == "" {
		dir = "out"
	}
	return dir
}

// previousPath is the aggregate document of the last run, which by default
// is the one this run replaces.
func previousPath(cmd *cobra.Command) string {
	if p := viper.GetString("paths.previous"); p != "" {
		return p
	}
	return filepath.Join(outDir(cmd), pipeline.AggregateFile)
}

func newRunContext(cmd *cobra.Command, previous aggregate.Snapshot) *pipeline.RunContext {
	date, _ := cmd.Flags().GetString("date")
	rc := pipeline.NewRunContext(date, previous, utils.Log)
	utils.Log.Debugf("Run %s dated %s", rc.RunID, rc.RunDate)
	return rc
}

func loadRegistry() (*registry.Registry, error) {
	path := viper.GetString("paths.registry")
	reg, err := registry.Load(path)
	if err != nil {
		return nil, fmt.Errorf("could not load registry %s: %w", path, err)
	}
	return reg, nil
}

func loadVendors() ([]model.VendorRecord, error) {
	path := viper.GetString("paths.content")
	vendors, err := content.Load(path)
	if err != nil {
		return nil, fmt.Errorf("could not load vendor listing %s: %w", path, err)
	}
	return vendors, nil
}

// loadDumps reads the dump of every source that has one configured. A
// configured dump that cannot be read or parsed fails the run.
func loadDumps() (map[model.Source][]gjson.Result, error) {
	dumps := make(map[model.Source][]gjson.Result)
	for _, src := range model.AllSources {
		path := viper.GetString("sources." + string(src))
		if path == "" {
			continue
		}
		items, err := sources.LoadDump(path)
		if err != nil {
			return nil, fmt.Errorf("could not load %s dump %s: %w", src, path, err)
		}
		dumps[src] = items
	}
	return dumps, nil
}

func newHTTPClient(cmd *cobra.Command) (*whttp.Client, error) {
	proxy, _ := cmd.Flags().GetString("proxy")
	return whttp.NewClient(whttp.ClientOptions{
		Proxy:        proxy,
		HostInterval: viper.GetDuration("evidence.host_interval"),
	})
}

func verificationConfig(client *whttp.Client) pipeline.VerificationConfig {
	collector := evidence.NewCollector(client, evidence.Options{
		ProbeTimeout: viper.GetDuration("evidence.probe_timeout"),
		FetchTimeout: viper.GetDuration("evidence.fetch_timeout"),
		Log:          utils.Log,
	})
	return pipeline.VerificationConfig{
		Verifier:    collector,
		Concurrency: viper.GetInt("evidence.concurrency"),
	}
}

func newFeed(client *whttp.Client) (discovery.Feed, error) {
	if u := viper.GetString("feed.url"); u != "" {
		return discovery.NewHTTPFeed(client, u, viper.GetString("feed.api_key")), nil
	}
	if f := viper.GetString("feed.file"); f != "" {
		return &discovery.FileFeed{Path: f}, nil
	}
	return nil, fmt.Errorf("no discovery feed configured, set feed.url or feed.file")
}

// withRunLock holds the output directory lock while fn runs.
func withRunLock(dir string, fn func() error) error {
	lock, err := utils.NewRunLock(dir)
	if err != nil {
		return err
	}
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			utils.Log.Warnf("%v", err)
		}
	}()
	return fn()
}

// finish writes the outcome documents and, with --db, appends the run to the
// history.
func finish(ctx context.Context, cmd *cobra.Command, rc *pipeline.RunContext, outcome *pipeline.Outcome) error {
	dir := outDir(cmd)
	if err := outcome.Write(rc, dir); err != nil {
		return fmt.Errorf("could not write run documents: %w", err)
	}
	utils.Log.Infof("Documents written to %s", dir)

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		return nil
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := outcome.Record(ctx, rc, db); err != nil {
		return fmt.Errorf("could not record run history: %w", err)
	}
	return nil
}
