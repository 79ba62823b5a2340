package main

import "github.com/jaydestro/GitHubRepoStats/cmd"

func main() {
	cmd.Execute()
}
