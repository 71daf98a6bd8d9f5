package main

import (
	"dqcheck/internal/config"
	"dqcheck/internal/logging"
	"dqcheck/internal/storage"
	"dqcheck/internal/webui"

	"github.com/spf13/cobra"
)

type serveFlags struct {
	dir        string
	addr       string
	storeKind  string
	storeDSN   string
	storeTable string
	logLevel   string
}

func newServeCmd(getenv func(string) string) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generated html site and its JSON API",
		Long: `Serves the directory written by the html_site destination.

/api/latest returns the latest run of every suite; /api/latest?suite=NAME the
full result of one suite. With --store-dsn, /api/runs?suite=NAME lists the run
history from the result store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logging.New(logging.Options{Level: f.logLevel, Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			dir := f.dir
			if dir == "" {
				dir = getenv(config.EnvSiteDir)
			}
			if dir == "" {
				dir = config.DefaultSiteDir
			}

			wcfg := webui.Config{Addr: f.addr, SiteDir: dir, Logger: logging.Component(log, "webui")}
			if f.storeDSN != "" {
				repo, err := storage.New(cmd.Context(), storage.Config{Kind: f.storeKind, DSN: f.storeDSN, Table: f.storeTable})
				if err != nil {
					return err
				}
				defer repo.Close()
				wcfg.Runs = repo
			}
			return webui.NewServer(wcfg).ListenAndServe(cmd.Context())
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.dir, "dir", "", "site directory (default env "+config.EnvSiteDir+" or "+config.DefaultSiteDir+")")
	fl.StringVar(&f.addr, "addr", ":8080", "listen address")
	fl.StringVar(&f.storeKind, "store-kind", config.DefaultStoreKind, "result store kind for /api/runs")
	fl.StringVar(&f.storeDSN, "store-dsn", "", "result store DSN; empty disables /api/runs")
	fl.StringVar(&f.storeTable, "store-table", "", "result table prefix")
	fl.StringVar(&f.logLevel, "log-level", "info", "log level")
	return cmd
}
