package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose bool
	log     *logrus.Logger
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rafl",
		Short: "rafl is a tool to train and query online random forests",
		Long:  `A tool to train random forest classifiers incrementally from labelled feature descriptors, evaluate them, and use them to classify new descriptors`,
	}
	config := &rootCmdConfig{log: logrus.New()}
	config.log.SetOutput(os.Stderr)
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if config.verbose {
			config.log.SetLevel(logrus.DebugLevel)
		} else {
			config.log.SetLevel(logrus.InfoLevel)
		}
	}
	rootCmd.AddCommand(versionCmd(), trainCmd(config), predictCmd(config), evaluateCmd(config))
	return rootCmd
}
