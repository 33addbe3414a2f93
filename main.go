// cmd: social-service (main.go u rootu)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "social-service",
		Short:         "Social graph backend: users, connections and recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default $SOCIAL_CONFIG)")

	root.AddCommand(
		newServeCmd(&configPath),
		newGenerateCmd(),
		newSeedCmd(&configPath),
		newTokenCmd(&configPath),
	)
	return root
}
