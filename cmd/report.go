package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jaydestro/GitHubRepoStats/internal/config"
	"github.com/jaydestro/GitHubRepoStats/internal/domain"
	"github.com/jaydestro/GitHubRepoStats/internal/export"
	"github.com/jaydestro/GitHubRepoStats/internal/gateway"
	"github.com/jaydestro/GitHubRepoStats/internal/store"
	"github.com/jaydestro/GitHubRepoStats/internal/usecase"
)

// exportContainer is the blob container exports and the repo list live in.
const exportContainer = "githubrepostats"

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Collects, merges and exports statistics for one repository",
	Long: `Fetches all metric streams for a single repository, merges them with the
history stored in the configured backend, persists the merged datasets and
writes the spreadsheet/JSON exports.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		owner, _ := cmd.Flags().GetString("owner")
		repo, _ := cmd.Flags().GetString("repo")
		filename, _ := cmd.Flags().GetString("filename")

		cfg := loadConfig(cmd)

		githubGateway, err := gateway.NewGitHubGateway(cfg.Token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		st := connectStore(ctx, cfg, logger)
		defer st.Close(ctx)

		pipeline := usecase.NewPipeline(githubGateway, st, logger)
		run, err := pipeline.Run(ctx, owner, repo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Run aborted: %v\n", err)
			os.Exit(1)
		}

		if err := exportRun(ctx, cfg, run, filename); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to export results: %v\n", err)
			os.Exit(1)
		}

		printSummary(run)
		if !run.Succeeded() {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("owner", "o", "", "Organization/user that owns the repository (required)")
	reportCmd.Flags().StringP("repo", "r", "", "Repository name (required)")
	reportCmd.MarkFlagRequired("owner")
	reportCmd.MarkFlagRequired("repo")
	reportCmd.Flags().String("filename", "", "Spreadsheet filename (defaults to {owner}-{repo}-traffic-data.xlsx)")
	addStoreFlags(reportCmd)
}

// addStoreFlags registers the flags shared by commands that run pipelines.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("token-file", "", "Path to a file containing the GitHub personal access token (falls back to "+config.EnvToken+")")
	cmd.Flags().String("backend", string(config.BackendMongo), "Store backend: mongodb or cosmos")
	cmd.Flags().String("connection-string", "", "Store connection string (falls back to "+config.EnvMongo+" or "+config.EnvCosmos+")")
	cmd.Flags().String("blob-connection-string", "", "Optional blob storage connection string for uploading exports (falls back to "+config.EnvBlobStorage+")")
	cmd.Flags().String("output", config.OutputBoth, "Export format: spreadsheet, json or both (falls back to "+config.EnvOutput+")")
}

// loadConfig merges flags over environment (with optional .env file) into the
// explicit config struct every component receives. It exits on invalid input;
// these commands are the outermost error surface.
func loadConfig(cmd *cobra.Command) *config.Config {
	_ = godotenv.Load()

	backend, _ := cmd.Flags().GetString("backend")
	connStr, _ := cmd.Flags().GetString("connection-string")
	blobConnStr, _ := cmd.Flags().GetString("blob-connection-string")
	output, _ := cmd.Flags().GetString("output")
	tokenFile, _ := cmd.Flags().GetString("token-file")

	token := ""
	if tokenFile != "" {
		var err error
		token, err = config.ReadTokenFile(tokenFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if token == "" {
		token = os.Getenv(config.EnvToken)
	}
	if connStr == "" {
		switch config.Backend(backend) {
		case config.BackendCosmos:
			connStr = os.Getenv(config.EnvCosmos)
		default:
			connStr = os.Getenv(config.EnvMongo)
		}
	}
	if blobConnStr == "" {
		blobConnStr = os.Getenv(config.EnvBlobStorage)
	}
	if !cmd.Flags().Changed("output") {
		if env := os.Getenv(config.EnvOutput); env != "" {
			output = env
		}
	}

	cfg := &config.Config{
		Token:                 token,
		Backend:               config.Backend(backend),
		StoreConnectionString: connStr,
		BlobConnectionString:  blobConnStr,
		OutputFormat:          output,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// connectStore opens the configured backend or exits; without a store nothing
// else can proceed.
func connectStore(ctx context.Context, cfg *config.Config, logger *log.Logger) store.Store {
	var (
		st  store.Store
		err error
	)
	switch cfg.Backend {
	case config.BackendCosmos:
		st, err = store.ConnectCosmos(cfg.StoreConnectionString, logger)
	default:
		st, err = store.ConnectMongo(ctx, cfg.StoreConnectionString, logger)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s store: %v\n", cfg.Backend, err)
		os.Exit(1)
	}
	return st
}

// exportRun writes the configured export artifacts for one repository run and
// uploads them when blob storage is configured.
func exportRun(ctx context.Context, cfg *config.Config, run *usecase.RunResult, filename string) error {
	tables := make([]export.Table, 0, len(run.Streams))
	for _, sr := range run.Streams {
		if sr.Failed() {
			continue
		}
		sp, ok := domain.SpecFor(sr.Stream)
		if !ok {
			continue
		}
		tables = append(tables, export.AppendMonthlyTotals(export.NewTable(sp, sr.Rows)))
	}
	if len(tables) == 0 {
		return nil
	}

	if filename == "" {
		filename = fmt.Sprintf("%s-%s-traffic-data.xlsx", run.Owner, run.Repo)
	}
	jsonName := fmt.Sprintf("%s-%s-traffic-data.json", run.Owner, run.Repo)

	if cfg.OutputFormat == config.OutputSpreadsheet || cfg.OutputFormat == config.OutputBoth {
		if err := export.WriteWorkbook(filename, tables); err != nil {
			return err
		}
		fmt.Printf("Data successfully saved to %s\n", filename)
		if cfg.BlobConnectionString != "" {
			data, err := os.ReadFile(filename)
			if err != nil {
				return err
			}
			if err := export.UploadBlob(ctx, cfg.BlobConnectionString, exportContainer, filename, data); err != nil {
				return err
			}
		}
	}
	if cfg.OutputFormat == config.OutputJSON || cfg.OutputFormat == config.OutputBoth {
		if err := export.WriteJSON(jsonName, tables); err != nil {
			return err
		}
		fmt.Printf("Data successfully saved to %s\n", jsonName)
		if cfg.BlobConnectionString != "" {
			data, err := export.EncodeJSON(tables)
			if err != nil {
				return err
			}
			if err := export.UploadBlob(ctx, cfg.BlobConnectionString, exportContainer, jsonName, data); err != nil {
				return err
			}
		}
	}
	return nil
}

// printSummary prints the per-stream success/failure tally for a run.
func printSummary(run *usecase.RunResult) {
	succeeded := 0
	for _, sr := range run.Streams {
		if sr.Failed() {
			fmt.Printf("%s/%s %s: FAILED (%v)\n", run.Owner, run.Repo, sr.Stream, sr.Err)
			continue
		}
		succeeded++
		fmt.Printf("%s/%s %s: %d rows\n", run.Owner, run.Repo, sr.Stream, len(sr.Rows))
	}
	fmt.Printf("%s/%s: %d/%d streams succeeded\n", run.Owner, run.Repo, succeeded, len(run.Streams))
}
