// Command backup exports a shelfkeeper database to a zip archive, restores
// one, or checks one. The server must be stopped while it runs.
//
// Usage:
//
//	backup create [-o file]
//	backup restore <file> [--dry-run]
//	backup inspect <file>
package main

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shelfkeeper/shelfkeeper/internal/backup"
	"github.com/shelfkeeper/shelfkeeper/internal/config"
	"github.com/shelfkeeper/shelfkeeper/internal/logger"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

// version is stamped into archive manifests.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	v   *viper.Viper
	out io.Writer
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "backup",
		Short:         "Export, restore and check shelfkeeper database archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			level := slog.LevelWarn
			if a.v.GetBool("verbose") {
				level = slog.LevelInfo
			}
			a.log = logger.New(logger.Config{Writer: cmd.ErrOrStderr(), Level: level}).Logger
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("data-path", "", "data directory (default: $DATA_PATH or ~/shelfkeeper)")
	pf.Bool("json", false, "output as JSON")
	pf.BoolP("verbose", "v", false, "log progress to stderr")
	_ = a.v.BindPFlag("data_path", pf.Lookup("data-path"))
	_ = a.v.BindPFlag("json", pf.Lookup("json"))
	_ = a.v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = a.v.BindEnv("data_path", "DATA_PATH")

	root.AddCommand(newCreateCmd(a), newRestoreCmd(a), newInspectCmd(a))
	return root
}

func (a *app) dataPath() (string, error) {
	p := a.v.GetString("data_path")
	if p == "" {
		p = "~/shelfkeeper"
	}
	return homedir.Expand(p)
}

// openStore opens the database under the data path. Badger holds a
// directory lock, so this fails while the server is running.
func (a *app) openStore() (*store.Store, string, error) {
	path, err := a.dataPath()
	if err != nil {
		return nil, "", err
	}
	sc := config.StoreConfig{DataPath: path}
	s, err := store.New(sc.DBPath(), a.log, store.NewNoopEmitter())
	if err != nil {
		return nil, "", fmt.Errorf("open database (is the server still running?): %w", err)
	}
	return s, path, nil
}

func (a *app) writeJSON(v any) error {
	if err := json.MarshalWrite(a.out, v, jsontext.WithIndent("  ")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.out)
	return err
}

func newCreateCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write the whole database to an archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, dataPath, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if output == "" {
				output = filepath.Join(dataPath, "backups", backup.DefaultFileName(time.Now()))
			}
			res, err := backup.NewService(s, version, a.log).Export(cmd.Context(), output)
			if err != nil {
				return err
			}

			if a.v.GetBool("json") {
				return a.writeJSON(res)
			}
			fmt.Fprintf(a.out, "Wrote %s (%d bytes)\n", res.Path, res.Size)
			fmt.Fprintf(a.out, "%d users, %d series, %d volumes\n", res.Counts.Users, res.Counts.Collections, res.Counts.Items)
			fmt.Fprintf(a.out, "sha256 %s\n", res.Checksum)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "archive path (default: <data-path>/backups/backup-<time>.shelfkeeper.zip)")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Add an archive's records to the database",
		Long: `Add every user, series and volume in the archive to the database.
Records whose ID already exists are skipped, never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := backup.NewService(s, version, a.log).Restore(cmd.Context(), args[0], backup.RestoreOptions{DryRun: dryRun})
			if err != nil {
				return err
			}

			if a.v.GetBool("json") {
				return a.writeJSON(res)
			}
			verb := "Restored"
			if dryRun {
				verb = "Would restore"
			}
			fmt.Fprintf(a.out, "%s %d users, %d series, %d volumes\n", verb, res.Imported.Users, res.Imported.Collections, res.Imported.Items)
			if sk := res.Skipped; sk != (backup.Counts{}) {
				fmt.Fprintf(a.out, "Skipped %d users, %d series, %d volumes already present\n", sk.Users, sk.Collections, sk.Items)
			}
			for _, e := range res.Errors {
				fmt.Fprintf(a.out, "  %s %s: %s\n", e.Entry, e.EntityID, e.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "check the archive without writing")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print an archive's manifest after checking its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := backup.Inspect(args[0])
			if err != nil {
				return err
			}
			if a.v.GetBool("json") {
				return a.writeJSON(m)
			}
			fmt.Fprintf(a.out, "format %s, written %s by %s\n", m.Version, m.CreatedAt.Format(time.RFC3339), m.AppVersion)
			fmt.Fprintf(a.out, "%d users, %d series, %d volumes\n", m.Counts.Users, m.Counts.Collections, m.Counts.Items)
			return nil
		},
	}
}
