package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ftsync/internal/domain/search/request"
	"github.com/kailas-cloud/ftsync/internal/domain/search/result"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	attributes []string
	order      string
	limit      int
	offset     int
	count      bool
	raw        bool
	allTypes   bool
}

func newSearchCmd(rt *runtime) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <type> [phrase...]",
		Short: "Search the entries of a record type",
		Long: `Search the entries of a record type and print the result as JSON.

Examples:
  ftsync search Article "rails OR django"
  ftsync search Article --attr "custom_attribute STRINC ruby" --order "db_id NUMD"
  ftsync search Notification --count
  ftsync search Article tips --all-types --raw`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), rt, args[0], strings.Join(args[1:], " "), opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.attributes, "attr", "a", nil, "Attribute expression \"<attr> <OP> <value>\" (repeatable)")
	cmd.Flags().StringVarP(&opts.order, "order", "o", "", "Order expression \"<attr> <STRA|STRD|NUMA|NUMD|ASC|DESC>\"")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", -1, "Maximum number of hits (default 100, 0 in count mode)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Number of hits to skip")
	cmd.Flags().BoolVar(&opts.count, "count", false, "Print the number of hits only")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print index hits instead of records")
	cmd.Flags().BoolVar(&opts.allTypes, "all-types", false, "Search the entries of every type (needs --raw or --count)")

	return cmd
}

func (o searchOptions) toRequest() request.Options {
	opts := request.Options{
		Offset:     o.offset,
		Order:      o.order,
		Attributes: o.attributes,
		RawMatches: o.raw,
		Count:      o.count,
		AllTypes:   o.allTypes,
	}
	if o.limit >= 0 {
		opts = opts.WithLimit(o.limit)
	}
	return opts
}

func runSearch(ctx context.Context, out io.Writer, rt *runtime, typeName, phrase string, opts searchOptions) error {
	a, cleanup, err := bootstrap(ctx, rt)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := a.Index.Search(ctx, typeName, phrase, opts.toRequest())
	if err != nil {
		return fmt.Errorf("search %s: %w", typeName, err)
	}
	return writeJSON(out, searchOutput(&res))
}

func searchOutput(r *result.Result) map[string]any {
	out := map[string]any{"mode": r.Mode(), "total": r.Total()}
	switch r.Mode() {
	case request.Count:
	case request.Raw:
		hits := r.Hits()
		items := make([]map[string]any, len(hits))
		for i := range hits {
			items[i] = map[string]any{
				"id":         hits[i].IndexID(),
				"score":      hits[i].Score(),
				"attributes": hits[i].Attributes(),
			}
		}
		out["hits"] = items
	default:
		recs := r.Records()
		items := make([]map[string]any, len(recs))
		for i, rec := range recs {
			items[i] = map[string]any{"type": rec.Type(), "id": rec.ID(), "attributes": rec.Attributes()}
		}
		out["ids"] = r.RecordIDs()
		out["records"] = items
	}
	return out
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
