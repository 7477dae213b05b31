package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris-bluera/bluera-knowledge/internal/job"
)

var (
	jobsStatus       string
	jobsCleanupHours int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage background jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		jobs, err := a.jobs.ListJobs(job.Status(jobsStatus))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPROGRESS\tUPDATED\tMESSAGE")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
				j.ID, j.Type, j.Status, j.Progress,
				j.UpdatedAt.Local().Format(time.RFC3339), j.Message)
		}
		return w.Flush()
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		j, err := a.jobs.CancelJob(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Job %s is %s\n", j.ID, j.Status)
		return nil
	},
}

var jobsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old terminal job records",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		removed, err := a.jobs.CleanupOldJobs(time.Duration(jobsCleanupHours) * time.Hour)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d job records\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsCancelCmd, jobsCleanupCmd)
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status")
	jobsCleanupCmd.Flags().IntVar(&jobsCleanupHours, "older-than", 24, "age threshold in hours")
}
