package cmd

import (
	"fmt"
	"os"

	"github.com/nguyentranbao-ct/kvrp/internal/app"
	"github.com/nguyentranbao-ct/kvrp/internal/server"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "kvrp",
	Short:         "Live feeds for the KVRP community app",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	Run: func(cmd *cobra.Command, args []string) {
		app.Invoke(app.Config(), server.StartServer).Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, watchCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
