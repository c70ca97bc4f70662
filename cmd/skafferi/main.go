package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/cognicore/skafferi/pkg/skafferi"
	"github.com/cognicore/skafferi/pkg/skafferi/config"
	"github.com/cognicore/skafferi/pkg/skafferi/normalize"
	"github.com/cognicore/skafferi/pkg/skafferi/scale"
	"github.com/cognicore/skafferi/pkg/skafferi/store/sqlite"
)

const usage = `usage: skafferi <command> [flags]

commands:
  seed         load a catalog YAML file into the database
  search-food  rank foods against a query
  search-unit  rank units against a query
  scale        scale a raw quantity from one yield to another
`

var errUsage = errors.New("usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "skafferi: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "seed":
		return cmdSeed(ctx, args[1:], out)
	case "search-food":
		return cmdSearch(ctx, args[1:], out, false)
	case "search-unit":
		return cmdSearch(ctx, args[1:], out, true)
	case "scale":
		return cmdScale(args[1:], out)
	case "-h", "--help", "help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

// buildEngine opens the sqlite store at dbPath and wraps it in an engine.
func buildEngine(ctx context.Context, dbPath, enginePath string, verbose bool) (*skafferi.Engine, func(), error) {
	comps, err := (&config.Loader{EnginePath: enginePath}).Load()
	if err != nil {
		return nil, nil, err
	}
	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	log := zap.NewNop()
	if verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			st.Close()
			return nil, nil, err
		}
	}
	eng, err := skafferi.New(skafferi.Options{Store: st, Config: comps.Engine, Logger: log})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = log.Sync()
		eng.Close()
	}
	return eng, cleanup, nil
}

func cmdSeed(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Database path (required)")
	catalogPath := fs.String("catalog", "", "Catalog YAML file (required)")
	enginePath := fs.String("config", "", "Engine config YAML; its locale folds names (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" || *catalogPath == "" {
		return fmt.Errorf("seed: -db and -catalog are required: %w", errUsage)
	}

	comps, err := (&config.Loader{EnginePath: *enginePath, CatalogPath: *catalogPath}).Load()
	if err != nil {
		return err
	}
	st, err := sqlite.OpenSQLite(ctx, *dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", *dbPath, err)
	}
	defer st.Close()

	res, err := config.Seed(ctx, st, comps.Catalog, normalize.NewFromString(comps.Engine.Locale))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded %d foods, %d aliases, %d units\n", res.Foods, res.Aliases, res.Units)
	return nil
}

func cmdSearch(ctx context.Context, args []string, out io.Writer, units bool) error {
	name := "search-food"
	if units {
		name = "search-unit"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	dbPath := fs.String("db", "", "Database path (required)")
	enginePath := fs.String("config", "", "Engine config YAML (optional)")
	query := fs.String("q", "", "Query text (required)")
	limit := fs.Int("limit", 0, "Maximum results (0 = configured default)")
	asJSON := fs.Bool("json", false, "Print results as JSON")
	verbose := fs.Bool("v", false, "Log engine decisions to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" || *query == "" {
		return fmt.Errorf("%s: -db and -q are required: %w", name, errUsage)
	}

	eng, cleanup, err := buildEngine(ctx, *dbPath, *enginePath, *verbose)
	if err != nil {
		return err
	}
	defer cleanup()
	threshold := eng.Config().AcceptThreshold

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if units {
		res, err := eng.SearchUnit(ctx, *query, *limit)
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(out, res)
		}
		fmt.Fprintln(tw, "RANK\tNAME\tPLURAL\tABBR\tID")
		for _, u := range res {
			fmt.Fprintf(tw, "%.3f%s\t%s\t%s\t%s\t%s\n", u.Rank, mark(u.Rank, threshold), u.Name, u.Plural, u.Abbreviation, u.ID)
		}
		return tw.Flush()
	}

	res, err := eng.SearchFood(ctx, *query, *limit)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(out, res)
	}
	fmt.Fprintln(tw, "RANK\tNAME\tALIAS OF\tID")
	for _, f := range res {
		fmt.Fprintf(tw, "%.3f%s\t%s\t%s\t%s\n", f.Rank, mark(f.Rank, threshold), f.Name, f.CanonicalName, f.ID)
	}
	return tw.Flush()
}

// mark flags ranks that would be accepted as a resolution.
func mark(rank, threshold float64) string {
	if rank > threshold {
		return "*"
	}
	return ""
}

func cmdScale(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("scale", flag.ContinueOnError)
	qty := fs.String("qty", "", "Raw quantity; anything but a plain decimal counts as 1")
	yield := fs.Float64("yield", 0, "Servings the recipe was written for (required)")
	servings := fs.Float64("servings", 0, "Target servings (0 keeps the original amount)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var target *float64
	if *servings != 0 {
		if *servings < 0 {
			return fmt.Errorf("scale: -servings must be positive")
		}
		if err := scale.ValidateYield(*yield); err != nil {
			return fmt.Errorf("scale: %w", err)
		}
		target = servings
	}
	fmt.Fprintf(out, "%g\n", scale.Scale(*qty, *yield, target))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
