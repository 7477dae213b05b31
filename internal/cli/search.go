package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chris-bluera/bluera-knowledge/internal/search"
)

var (
	searchStores    []string
	searchMode      string
	searchLimit     int
	searchDetail    string
	searchThreshold float64
	searchMinRel    float64
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search one or more stores",
	Long: `Search runs a hybrid (vector + full-text) query over the named stores
and prints relevance-ranked results.

Examples:
  bluera-knowledge search "JWT token verification" --store my-app
  bluera-knowledge search "express middleware" --store api --store docs --detail contextual
  bluera-knowledge search "error handling" --store my-app --mode fts --json
`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringSliceVar(&searchStores, "store", nil, "store name or id (repeatable)")
	searchCmd.Flags().StringVar(&searchMode, "mode", "", "retrieval mode: vector, fts, or hybrid")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results")
	searchCmd.Flags().StringVar(&searchDetail, "detail", "", "enrichment: minimal, contextual, or full")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", -1, "minimum normalized score")
	searchCmd.Flags().Float64Var(&searchMinRel, "min-relevance", -1, "minimum raw cosine similarity")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit the raw JSON response")
	searchCmd.MarkFlagRequired("store")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, cleanup, err := loadApp()
	if err != nil {
		return err
	}
	defer cleanup()

	var storeIDs []string
	for _, name := range searchStores {
		st, err := a.stores.GetByIDOrName(name)
		if err != nil {
			return err
		}
		storeIDs = append(storeIDs, st.ID)
	}

	q := search.Query{
		Query:  args[0],
		Stores: storeIDs,
		Mode:   search.Mode(searchMode),
		Limit:  searchLimit,
		Detail: search.Detail(searchDetail),
	}
	if q.Mode == "" {
		q.Mode = search.Mode(a.cfg.Search.DefaultMode)
	}
	if q.Limit <= 0 {
		q.Limit = a.cfg.Search.DefaultLimit
	}
	if searchThreshold >= 0 {
		q.Threshold = &searchThreshold
	}
	if searchMinRel >= 0 {
		q.MinRelevance = &searchMinRel
	}

	resp, err := a.engine.Search(cmd.Context(), q)
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Results) == 0 {
		fmt.Println("No results")
		if resp.MaxRawScore != nil {
			fmt.Printf("(max raw score %.4f, confidence %s)\n", *resp.MaxRawScore, resp.Confidence)
		}
		return nil
	}

	for i, r := range resp.Results {
		fmt.Printf("%2d. [%.4f] %s %s\n", i+1, r.Score, r.Summary.Type, r.Summary.Name)
		fmt.Printf("    %s\n", r.Summary.Location)
		if r.Summary.Purpose != "" {
			fmt.Printf("    %s\n", r.Summary.Purpose)
		}
		fmt.Printf("    %s\n", r.Summary.RelevanceReason)
		if r.Context != nil {
			fmt.Printf("    used by %d, uses %d\n", r.Context.Usage.CalledBy, r.Context.Usage.Calls)
		}
	}
	fmt.Printf("\n%d results in %dms", resp.TotalResults, resp.TimeMs)
	if resp.Confidence != "" {
		fmt.Printf(" (confidence %s)", resp.Confidence)
	}
	fmt.Println()
	return nil
}
