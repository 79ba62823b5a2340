package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaydestro/GitHubRepoStats/internal/config"
	"github.com/jaydestro/GitHubRepoStats/internal/export"
	"github.com/jaydestro/GitHubRepoStats/internal/gateway"
	"github.com/jaydestro/GitHubRepoStats/internal/usecase"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Runs the collection pipeline for every repository in a tracked list",
	Long: `Processes a CSV list of tracked repositories ("owner,repo" header),
running the full collection pipeline for each in turn. A failure in one
repository never aborts the rest of the batch; the command reports a
per-repository tally and exits non-zero if any repository failed. This is the
entry point a scheduled host invokes daily.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		reposPath, _ := cmd.Flags().GetString("repos")
		fromBlob, _ := cmd.Flags().GetBool("from-blob")

		cfg := loadConfig(cmd)

		var repoData []byte
		if fromBlob {
			if cfg.BlobConnectionString == "" {
				fmt.Fprintln(os.Stderr, "Error: --from-blob requires a blob storage connection string.")
				os.Exit(1)
			}
			var err error
			repoData, err = export.DownloadBlob(ctx, cfg.BlobConnectionString, exportContainer, reposPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to download repository list: %v\n", err)
				os.Exit(1)
			}
		} else {
			var err error
			repoData, err = os.ReadFile(reposPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to read repository list: %v\n", err)
				os.Exit(1)
			}
		}
		repos, err := config.ParseRepoList(bytes.NewReader(repoData))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		githubGateway, err := gateway.NewGitHubGateway(cfg.Token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		st := connectStore(ctx, cfg, logger)
		defer st.Close(ctx)

		pipeline := usecase.NewPipeline(githubGateway, st, logger)

		// Repositories run sequentially; each is an independent unit and
		// a failure never propagates past its own summary line.
		succeeded := 0
		for _, repo := range repos {
			logger.Printf("Starting to process %s", repo)
			run, err := pipeline.Run(ctx, repo.Owner, repo.Name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: run aborted: %v\n", repo, err)
				continue
			}
			if err := exportRun(ctx, cfg, run, ""); err != nil {
				fmt.Fprintf(os.Stderr, "%s: export failed: %v\n", repo, err)
				continue
			}
			printSummary(run)
			if run.Succeeded() {
				succeeded++
			}
		}

		fmt.Printf("Batch complete: %d/%d repositories fully succeeded\n", succeeded, len(repos))
		if succeeded != len(repos) {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().String("repos", "repos.csv", "Repository list: a local CSV path, or a blob name with --from-blob")
	batchCmd.Flags().Bool("from-blob", false, "Read the repository list from the blob storage container instead of local disk")
	addStoreFlags(batchCmd)
}
