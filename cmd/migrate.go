package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
	"github.com/jaydestro/GitHubRepoStats/internal/store"
)

// migrateParallelism bounds how many streams migrate at once per database.
const migrateParallelism = 5

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copies stored metric streams from MongoDB to Cosmos DB",
	Long: `Reads every metric stream of the named databases from a MongoDB source and
upserts the rows into a Cosmos DB target. Upserts are keyed on each stream's
identity fields, so re-running a migration is safe and produces no
duplicates.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)
		_ = godotenv.Load()

		sourceURI, _ := cmd.Flags().GetString("source")
		targetConnStr, _ := cmd.Flags().GetString("target")
		databases, _ := cmd.Flags().GetStringSlice("database")
		if sourceURI == "" {
			sourceURI = os.Getenv("CUSTOMCONNSTR_MONGODB")
		}
		if targetConnStr == "" {
			targetConnStr = os.Getenv("CUSTOMCONNSTR_COSMOSDB")
		}
		if sourceURI == "" || targetConnStr == "" || len(databases) == 0 {
			fmt.Fprintln(os.Stderr, "Error: --source, --target and at least one --database are required.")
			os.Exit(1)
		}

		source, err := store.ConnectMongo(ctx, sourceURI, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to source store: %v\n", err)
			os.Exit(1)
		}
		defer source.Close(ctx)
		target, err := store.ConnectCosmos(targetConnStr, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to target store: %v\n", err)
			os.Exit(1)
		}

		failed := 0
		for _, db := range databases {
			logger.Printf("Migrating database %s", db)
			eg, egCtx := errgroup.WithContext(ctx)
			eg.SetLimit(migrateParallelism)
			for _, sp := range domain.Streams {
				sp := sp
				eg.Go(func() error {
					return migrateStream(egCtx, source, target, db, sp)
				})
			}
			if err := eg.Wait(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration of %s failed: %v\n", db, err)
				failed++
				continue
			}
			fmt.Printf("Successfully migrated database %s\n", db)
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

// migrateStream copies one stream container. Rows coming out of FetchAll are
// already JSON-safe strings, so they cross into Cosmos without temporal
// conversion.
func migrateStream(ctx context.Context, source, target store.Store, db string, sp domain.StreamSpec) error {
	docs, err := source.FetchAll(ctx, db, sp.Name)
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", db, sp.Name, err)
	}
	if len(docs) == 0 {
		return nil
	}
	if err := target.EnsureStream(ctx, db, sp.Name); err != nil {
		return err
	}
	if err := target.Upsert(ctx, db, sp.Name, sp.IdentityFields, docs); err != nil {
		return fmt.Errorf("write %s/%s: %w", db, sp.Name, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().String("source", "", "MongoDB connection string to migrate from")
	migrateCmd.Flags().String("target", "", "Cosmos DB connection string to migrate to")
	migrateCmd.Flags().StringSlice("database", nil, "Database name to migrate (repeatable)")
}
