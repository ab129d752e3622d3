package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slotbot",
	Short: "Slotbot is a Telegram session engine for supply slot automation",
	Long:  `Slotbot drives conversational wizards over Telegram for creating and managing supply slot searches, autobooking and stock redistribution tasks.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file")
}
