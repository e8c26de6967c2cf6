package cmd

import "fmt"

// set with -ldflags "-X github.com/fzft/go-unix/cmd.gitSHA1=..."
var (
	gitSHA1   string = "unknown"
	gitDirty  string = "unknown"
	buildID   string = "unknown"
	buildDate string = "unknown"
)

func GitSHA1() string {
	return gitSHA1
}

func GitDirty() string {
	return gitDirty
}

func Version() string {
	return fmt.Sprintf("go-unix sha=%s:%s build=%s date=%s", GitSHA1(), GitDirty(), buildID, buildDate)
}
