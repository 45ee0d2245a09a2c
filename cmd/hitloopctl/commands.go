package main

import (
	"encoding/json"
	"fmt"
	"time"

	"hitloop/contexts/annotation-pipeline/workunit-service/application/commands"
	"hitloop/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hitloopctl",
		Short: "Operate the hitloop annotation pipeline",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}
	root.AddCommand(issueCmd())
	root.AddCommand(pollCmd())
	root.AddCommand(ingestCmd())
	return root
}

func issueCmd() *cobra.Command {
	var (
		taskIDs       []string
		reward        string
		maxSubmitters int
		lifetime      time.Duration
		batchSize     int
	)

	command := &cobra.Command{
		Use:   "issue",
		Short: "Issue marketplace work units for tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.BuildOps(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			size := batchSize
			if size <= 0 {
				size = app.Config.Worker.IssueBatchSize
			}
			report, err := app.Module.Issuer.Execute(cmd.Context(), commands.IssueWorkUnitsCommand{
				TaskIDs:       taskIDs,
				Reward:        reward,
				MaxSubmitters: maxSubmitters,
				Lifetime:      lifetime,
				BatchSize:     size,
			})
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	command.Flags().StringArrayVar(&taskIDs, "task", nil, "Task id to issue a work unit for (repeatable)")
	command.Flags().StringVar(&reward, "reward", "", "Reward per submission, e.g. 0.10")
	command.Flags().IntVar(&maxSubmitters, "max-submitters", 0, "Max submitters per work unit")
	command.Flags().DurationVar(&lifetime, "lifetime", 0, "How long the work unit stays listed")
	command.Flags().IntVar(&batchSize, "batch-size", 0, "Marketplace calls per chunk")
	_ = command.MarkFlagRequired("task")
	return command
}

func pollCmd() *cobra.Command {
	var (
		groupID string
		limit   int
	)

	command := &cobra.Command{
		Use:   "poll",
		Short: "Reconcile local work units with the marketplace",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.BuildOps(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			job := app.Module.Reconcile
			if limit > 0 {
				job.PollLimit = limit
			}
			if groupID != "" {
				result, err := job.PollGroup(cmd.Context(), groupID)
				if err != nil {
					return err
				}
				return printJSON(result)
			}
			report, err := job.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	command.Flags().StringVar(&groupID, "group", "", "Poll a single marketplace group id")
	command.Flags().IntVar(&limit, "limit", 0, "Max open groups to poll")
	return command
}

func ingestCmd() *cobra.Command {
	var limit int

	command := &cobra.Command{
		Use:   "ingest",
		Short: "Turn completed work units into annotations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.BuildOps(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			job := app.Module.Ingest
			if limit > 0 {
				job.IngestLimit = limit
			}
			report, err := job.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	command.Flags().IntVar(&limit, "limit", 0, "Max work units per cycle")
	return command
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
