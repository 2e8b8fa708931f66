package main

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shelfkeeper/shelfkeeper/internal/apiclient"
	"github.com/shelfkeeper/shelfkeeper/internal/catalog"
	"github.com/shelfkeeper/shelfkeeper/internal/fetch"
	"github.com/shelfkeeper/shelfkeeper/internal/library"
	"github.com/shelfkeeper/shelfkeeper/internal/logger"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	configPath string

	v       *viper.Viper
	out     io.Writer
	log     *slog.Logger
	client  *apiclient.Client
	catalog *catalog.Catalog
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "shelf",
		Short: "Track series and volumes on a shelfkeeper server",
		Long: `shelf keeps a personal library of series and their volumes on a
shelfkeeper server. Sign in once with "shelf login"; the access token is kept
in the config file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/shelfkeeper/shelf.yaml)")
	pf.String("server", defaultServer, "server URL")
	pf.Bool("json", false, "output as JSON")
	pf.BoolP("verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newLoginCmd(a),
		newListCmd(a),
		newTagsCmd(a),
		newAddSeriesCmd(a),
		newAddVolumeCmd(a),
		newAssignCmd(a),
		newMarkCmd(a),
		newRmCmd(a),
	)
	return root
}

// setup loads configuration and builds the client and catalog.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.configPath == "" {
		path, err := defaultConfigPath()
		if err != nil {
			return err
		}
		a.configPath = path
	}

	v, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	for key, flag := range map[string]string{cfgKeyServer: "server", cfgKeyJSON: "json", cfgKeyVerbose: "verbose"} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	a.v = v
	a.out = cmd.OutOrStdout()

	level := slog.LevelWarn
	if v.GetBool(cfgKeyVerbose) {
		level = slog.LevelDebug
	}
	a.log = logger.New(logger.Config{Writer: os.Stderr, Level: level}).Logger

	rps := v.GetFloat64(cfgKeyRateLimit)
	client, err := apiclient.New(v.GetString(cfgKeyServer),
		apiclient.WithToken(v.GetString(cfgKeyToken)),
		apiclient.WithRateLimit(rps, int(max(rps, 1))),
		apiclient.WithLogger(a.log.With("component", "client")),
	)
	if err != nil {
		return err
	}
	a.client = client

	fcfg := fetch.DefaultConfig()
	fcfg.PageSize = v.GetInt(cfgKeyPageSize)
	// The client already paces requests.
	fcfg.RequestsPerSecond = 0

	store := library.NewStore()
	a.catalog = catalog.New(client, store, fetch.New(client, store, fcfg, a.log.With("component", "fetch")), a.log.With("component", "catalog"))
	return nil
}

// requireSession fails early when no token is configured.
func (a *app) requireSession() error {
	if a.client.Token() == "" {
		return errors.New(`not signed in: run "shelf login" first`)
	}
	return nil
}

// load pulls the whole library into the catalog.
func (a *app) load(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	res, err := a.catalog.Refresh(ctx, true)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	a.log.Debug("library loaded", "collections", res.Collections, "unassigned", res.Unassigned, "pages", res.Pages)
	return nil
}

func (a *app) jsonOutput() bool {
	return a.v.GetBool(cfgKeyJSON)
}

func (a *app) writeJSON(v any) error {
	if err := json.MarshalWrite(a.out, v, jsontext.WithIndent("  ")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.out)
	return err
}

// reportBulk prints a bulk result and returns its error.
func (a *app) reportBulk(verb string, res catalog.BulkResult, err error) error {
	if a.jsonOutput() {
		if werr := a.writeJSON(map[string][]string{"done": res.Done, "failed": res.Failed}); werr != nil {
			return werr
		}
		return err
	}
	fmt.Fprintf(a.out, "%s %d\n", verb, len(res.Done))
	for _, id := range res.Failed {
		fmt.Fprintf(a.out, "  failed: %s\n", id)
	}
	return err
}
