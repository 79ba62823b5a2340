package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jaydestro/GitHubRepoStats/internal/config"
	"github.com/jaydestro/GitHubRepoStats/internal/gateway"
)

var checkAccessCmd = &cobra.Command{
	Use:   "check-access",
	Short: "Partitions a repository list by push permission",
	Long: `Checks push access for every repository in a CSV list and writes the ones
you can push to into repos_with_push_access.csv (usable as the batch input)
and the rest into repos_without_push_access.txt.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)
		_ = godotenv.Load()

		reposPath, _ := cmd.Flags().GetString("repos")
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
		if token == "" {
			fmt.Fprintf(os.Stderr, "Error: missing GitHub token: pass --token-file or set %s.\n", config.EnvToken)
			os.Exit(1)
		}

		f, err := os.Open(reposPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read repository list: %v\n", err)
			os.Exit(1)
		}
		repos, err := config.ParseRepoList(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		githubGateway, err := gateway.NewGitHubGateway(token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}

		accessFile, err := os.Create("repos_with_push_access.csv")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output file: %v\n", err)
			os.Exit(1)
		}
		defer accessFile.Close()
		noAccessFile, err := os.Create("repos_without_push_access.txt")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output file: %v\n", err)
			os.Exit(1)
		}
		defer noAccessFile.Close()

		writer := csv.NewWriter(accessFile)
		writer.Write([]string{"owner", "repo"})
		for _, repo := range repos {
			canPush, err := githubGateway.CheckPushAccess(ctx, repo.Owner, repo.Name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", repo, err)
				continue
			}
			if canPush {
				writer.Write([]string{repo.Owner, repo.Name})
			} else {
				fmt.Fprintf(noAccessFile, "%s\n", repo)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Repositories with push access are listed in repos_with_push_access.csv")
		fmt.Println("Repositories without push access are listed in repos_without_push_access.txt")
	},
}

func init() {
	rootCmd.AddCommand(checkAccessCmd)
	checkAccessCmd.Flags().String("repos", "repos.csv", "CSV list of repositories to check")
	checkAccessCmd.Flags().String("token-file", "", "Path to a file containing the GitHub personal access token")
}
