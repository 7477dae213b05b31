package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chris-bluera/bluera-knowledge/internal/store"
)

var (
	storeKind        string
	storePath        string
	storeURL         string
	storeRef         string
	storeDepth       int
	storeDescription string
	storeTags        []string
	syncPrune        bool
)

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Manage knowledge stores",
}

var storesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a store",
	Long: `Create a named store backed by a local folder, a git repository, or a
website seed URL.

Examples:
  # A local folder
  bluera-knowledge stores create my-app --kind file --path ./src

  # A cloned repository at a branch
  bluera-knowledge stores create zod --kind repo --url https://github.com/colinhacks/zod --ref main

  # A documentation site crawled two levels deep
  bluera-knowledge stores create react-docs --kind web --url https://react.dev/learn --depth 2
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		st, err := a.stores.Create(cmd.Context(), store.CreateRequest{
			Name:        args[0],
			Description: storeDescription,
			Tags:        storeTags,
			Kind:        store.Kind(storeKind),
			Path:        storePath,
			URL:         storeURL,
			Ref:         storeRef,
			Depth:       storeDepth,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created store %s (%s)\n", st.Name, st.ID)
		return nil
	},
}

var storesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tSTATUS\tDOCS\tSOURCE")
		for _, st := range a.registry.List() {
			source := st.Path
			if st.Kind == store.KindWeb {
				source = st.URL
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", st.Name, st.Kind, st.Status, st.DocCount, source)
		}
		return w.Flush()
	},
}

var storesDeleteCmd = &cobra.Command{
	Use:   "delete <name-or-id>",
	Short: "Delete a store and all its derived data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := a.stores.Delete(cmd.Context(), args[0], false); err != nil {
			return err
		}
		fmt.Printf("Deleted store %s\n", args[0])
		return nil
	},
}

var storesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the registry against the store-definitions file",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := a.stores.Synchronize(cmd.Context(), syncPrune)
		if err != nil {
			return err
		}
		if len(report.Added) > 0 {
			fmt.Printf("Added: %s\n", strings.Join(report.Added, ", "))
		}
		if len(report.Orphaned) > 0 {
			fmt.Printf("Orphaned: %s\n", strings.Join(report.Orphaned, ", "))
		}
		if len(report.Pruned) > 0 {
			fmt.Printf("Pruned: %s\n", strings.Join(report.Pruned, ", "))
		}
		if len(report.Added)+len(report.Orphaned) == 0 {
			fmt.Println("Registry and definitions are in sync")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storesCmd)
	storesCmd.AddCommand(storesCreateCmd, storesListCmd, storesDeleteCmd, storesSyncCmd)

	storesCreateCmd.Flags().StringVar(&storeKind, "kind", "file", "store kind: file, repo, or web")
	storesCreateCmd.Flags().StringVar(&storePath, "path", "", "local directory (file/repo stores)")
	storesCreateCmd.Flags().StringVar(&storeURL, "url", "", "git URL (repo) or seed URL (web)")
	storesCreateCmd.Flags().StringVar(&storeRef, "ref", "", "branch to clone (repo stores)")
	storesCreateCmd.Flags().IntVar(&storeDepth, "depth", 1, "crawl depth (web stores)")
	storesCreateCmd.Flags().StringVar(&storeDescription, "description", "", "store description")
	storesCreateCmd.Flags().StringSliceVar(&storeTags, "tag", nil, "store tags (repeatable)")

	storesSyncCmd.Flags().BoolVar(&syncPrune, "prune", false, "delete registered stores with no definition")
}
