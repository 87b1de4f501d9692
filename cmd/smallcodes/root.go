package main

import (
	"github.com/gasparian/smallcodes-go/common"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "smallcodes",
	Short:         "Computes ITQ small-codes of descriptors and puts them into the index",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the yaml config, env variables override it")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug messages")
	rootCmd.AddCommand(runCmd, convertCmd)
}

func loadConfig() (*common.Config, *common.Logger, error) {
	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	return config, common.GetNewLogger(verbose), nil
}
