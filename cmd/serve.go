package cmd

import (
	"github.com/ACUCyS/weekly-ctf-bot/app"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connects to Discord and runs the bot until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New()
		if err != nil {
			return err
		}
		return application.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
