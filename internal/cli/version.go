/*
Copyright © 2025 Logicos Software

version.go implements the 'version' command.
*/
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Version information, set via ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ssops - method-based secret sharing")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Built:      %s\n", BuildTime)
		fmt.Printf("Go Version: %s\n", GoVersion)
		fmt.Println()
		fmt.Printf("Copyright © 2025-%d Logicos Software\n", time.Now().Year())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
