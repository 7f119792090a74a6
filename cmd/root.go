package cmd

import (
	"os"

	"github.com/ACUCyS/weekly-ctf-bot/config"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	"github.com/spf13/cobra"
)

var envFile string

// rootCmd 하위 명령어 없이 실행하면 봇을 시작합니다
var rootCmd = &cobra.Command{
	Use:   "weekly-ctf-bot",
	Short: "Discord bot for running weekly CTF challenges",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile == "" {
			return config.LoadDotEnv()
		}
		return config.LoadDotEnv(envFile)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

// Execute 명령줄 인자를 해석해 명령어를 실행합니다
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		utils.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default: ./.env if present)")
}
