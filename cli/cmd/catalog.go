package cmd

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/inquire/cli/reader"
	"github.com/pithecene-io/inquire/cli/render"
	"github.com/pithecene-io/inquire/export"
	"github.com/pithecene-io/inquire/inquire"
)

// catalogTimeout bounds login, listing and logout of the catalog command.
const catalogTimeout = 60 * time.Second

// CatalogCommand returns the catalog command.
// Catalog lists the shared queries of a data source. It never submits.
func CatalogCommand() *cli.Command {
	flags := connectionFlags()
	flags = append(flags, &cli.StringFlag{
		Name:  "exclude",
		Usage: "Regular expression of query names to flag as excluded (empty disables)",
	})
	flags = append(flags, ReadOnlyFlags()...)
	return &cli.Command{
		Name:   "catalog",
		Usage:  "List the shared queries of a data source",
		Flags:  flags,
		Action: catalogAction,
	}
}

func catalogAction(c *cli.Context) error {
	files, err := loadConfigs(c)
	if err != nil {
		return cli.Exit(err.Error(), export.ExitCodeConfig)
	}
	if len(files) != 1 {
		return cli.Exit("catalog requires a single config file", export.ExitCodeConfig)
	}
	cfg := files[0].Config

	exclude, err := excludePattern(cfg.Exclude)
	if err != nil {
		return cli.Exit(err.Error(), export.ExitCodeConfig)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	client, err := newClient(cfg, nil)
	if err != nil {
		return cli.Exit(err.Error(), export.ExitCodeConfig)
	}

	ctx, cancel := context.WithTimeout(c.Context, catalogTimeout)
	defer cancel()

	queries, err := listCatalog(ctx, client, cfg.Username, cfg.Password, cfg.LDS)
	if err != nil {
		return cli.Exit("failed to list shared queries: "+err.Error(), export.ExitCodeFailed)
	}

	entries := reader.CatalogEntries(queries, exclude)
	if c.Bool("tui") {
		return r.RenderTUI("catalog_list", entries)
	}
	return r.Render(entries)
}

// listCatalog lists the shared queries of lds, logging in and out around
// the call when the session has no token.
func listCatalog(ctx context.Context, client inquire.Client, username, password, lds string) ([]inquire.SharedQuery, error) {
	if !client.Session().HasToken() {
		if _, err := client.Login(ctx, username, password); err != nil {
			return nil, err
		}
		defer client.Logout(ctx)
	}
	return client.SharedQueries(ctx, lds)
}
