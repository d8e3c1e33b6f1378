package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/app"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/library"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/workpool"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/postgres"
)

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

// openService builds or loads the snapshot and wraps it in a Service. The
// returned func releases the stores and the pool.
func openService(c *cli.Context, fresh bool) (*service.Service, func(), error) {
	ctx := c.Context
	cfg := configFrom(c)

	pool, err := workpool.New(cfg.Search.Workers)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := app.OpenCatalog(ctx, cfg)
	if err != nil {
		pool.Release()
		return nil, nil, err
	}
	store, err := app.OpenCheckpoints(cfg.Checkpoint)
	if err != nil {
		catalog.Close()
		pool.Release()
		return nil, nil, err
	}
	cleanup := func() {
		store.Close()
		catalog.Close()
		pool.Release()
	}
	snap, err := app.BuildSnapshot(ctx, cfg, catalog, store, app.BuildOptions{Fresh: fresh, Pool: pool})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	svc := service.New(snap,
		service.WithPool(pool),
		service.WithTimeout(cfg.Search.QueryTimeout),
		service.WithSuggestionsPerBook(cfg.Search.SuggestionsPerBook),
	)
	return svc, cleanup, nil
}

func buildCommand(c *cli.Context) error {
	svc, cleanup, err := openService(c, c.Bool("fresh"))
	if err != nil {
		return err
	}
	defer cleanup()

	snap := svc.Snapshot()
	summary := map[string]int{
		"books":   len(snap.Library),
		"stems":   len(snap.Keywords.StemToBooks),
		"words":   len(snap.Keywords.WordToStem),
		"titles":  len(snap.Titles),
		"authors": len(snap.Authors),
		"ranked":  len(snap.Closeness),
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, summary)
	}
	for _, k := range []string{"books", "stems", "words", "titles", "authors", "ranked"} {
		fmt.Fprintf(c.App.Writer, "%-8s %d\n", k, summary[k])
	}
	return nil
}

func wordCommand(c *cli.Context) error {
	word, err := singleArg(c, "WORD")
	if err != nil {
		return err
	}
	svc, cleanup, err := openService(c, false)
	if err != nil {
		return err
	}
	defer cleanup()
	return printBooks(c, svc.Books(svc.BooksByWord(word)))
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("search needs a QUERY")
	}
	svc, cleanup, err := openService(c, false)
	if err != nil {
		return err
	}
	defer cleanup()

	var ids []int
	switch by := c.String("by"); by {
	case "keywords":
		ids, err = svc.Search(c.Context, query)
		if err == nil && c.Bool("closeness") {
			ids = svc.OrderByCloseness(ids)
		}
	case "titles":
		ids, err = svc.SearchTitles(c.Context, query)
	case "authors":
		ids, err = svc.SearchAuthors(c.Context, query)
	default:
		return fmt.Errorf("unknown index %q", by)
	}
	if err != nil {
		return err
	}
	return printBooks(c, svc.Books(ids))
}

func regexCommand(c *cli.Context) error {
	pattern, err := singleArg(c, "PATTERN")
	if err != nil {
		return err
	}
	svc, cleanup, err := openService(c, false)
	if err != nil {
		return err
	}
	defer cleanup()

	var ids []int
	if name := c.String("field"); name != "" {
		field, err := service.ParseField(name)
		if err != nil {
			return err
		}
		ids, err = svc.BooksMatchingRegex(c.Context, pattern, field)
		if err != nil {
			return err
		}
		if c.Bool("closeness") {
			ids = svc.OrderByCloseness(ids)
		}
	} else {
		ids, err = svc.SearchRegex(c.Context, pattern, c.Bool("closeness"))
		if err != nil {
			return err
		}
	}
	return printBooks(c, svc.Books(ids))
}

func suggestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("suggest needs at least one ID")
	}
	ids, err := parseIDs(c.Args().Slice())
	if err != nil {
		return err
	}
	svc, cleanup, err := openService(c, false)
	if err != nil {
		return err
	}
	defer cleanup()

	found, err := svc.Suggestions(ids, c.Int("limit"))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, found)
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, s := range found {
		b, _ := svc.Book(s.ID)
		fmt.Fprintf(tw, "%d\t%.4f\t%s\n", s.ID, s.Distance, b.Title)
	}
	return tw.Flush()
}

func distanceCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("distance needs exactly two IDs")
	}
	ids, err := parseIDs(c.Args().Slice())
	if err != nil {
		return err
	}
	svc, cleanup, err := openService(c, false)
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := svc.JaccardDistance(ids[0], ids[1])
	if err != nil {
		return err
	}
	if math.IsNaN(d) {
		fmt.Fprintln(c.App.Writer, "undefined")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%.6f\n", d)
	return nil
}

func importCommand(c *cli.Context) error {
	cfg := configFrom(c)
	lib, err := library.FileSource{Path: c.String("from")}.Load(c.Context)
	if err != nil {
		return err
	}
	pg, err := postgres.New(c.Context, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	src := library.NewPostgresSource(pg.DB)
	if err := src.EnsureSchema(c.Context); err != nil {
		return err
	}
	if err := src.Import(c.Context, lib); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "imported %d books\n", len(lib))
	return nil
}

func singleArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s needs exactly one %s", c.Command.Name, name)
	}
	return c.Args().First(), nil
}

func parseIDs(args []string) ([]int, error) {
	var ids []int
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid book id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("no book ids given")
	}
	return ids, nil
}

func printBooks(c *cli.Context, books []library.Book) error {
	if c.Bool("json") {
		return writeJSON(c.App.Writer, books)
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", b.ID, b.Title, strings.Join(b.AuthorNames(), "; "))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
