package commands

import (
	"fmt"
	"runtime"
	"github.com/spf13/cobra"
	"github.com/bl4ck0w1/hostbrute/internal/storage"
)

func NewVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information about hostbrute.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hostbrute Version: %s\n", version)
			fmt.Printf("Git Commit: %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
			fmt.Printf("Hosts Table Format: %s\n", storage.StoreFormat)
			fmt.Printf("Go Version: %s\n", runtime.Version())
			fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
