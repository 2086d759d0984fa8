package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/C8PAN/rafl"
	"github.com/C8PAN/rafl/evaluation"
	"github.com/C8PAN/rafl/metadata"
	"github.com/C8PAN/rafl/queue"
)

type evaluateCmdConfig struct {
	*rootCmdConfig
	dataInput     string
	metadataInput string
	folds         int
}

func evaluateCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &evaluateCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a forest configuration with cross-validation",
		Long:  `Run k-fold cross-validation on a set of labelled examples, training a fresh forest per fold, and print the resulting confusion matrix and metrics`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			ctx := context.Background()
			md, err := metadata.ReadMetadataFromFile(config.metadataInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			examples, err := loadExamples(ctx, config.dataInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.log.Infof("Cross-validating a %d-tree forest on %d examples over %d folds...", md.Forest.Trees, len(examples), config.folds)
			result, err := evaluation.CrossValidate(ctx, examples, config.folds, func(ctx context.Context) (*rafl.Forest[string], error) {
				return rafl.New[string](ctx, md.Forest, queue.New())
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			mean, stdDev := result.MeanAccuracy()
			fmt.Println(result.Matrix.Render())
			fmt.Println(renderMetrics(result))
			fmt.Printf("Accuracy: %.4f (per-fold mean %.4f, std dev %.4f)\n", result.Accuracy(), mean, stdDev)
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV (.csv) or SQLite (.db) file with labelled examples to evaluate on (defaults to STDIN, interpreted as CSV)")
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file with the dataset metadata: descriptor feature names, labels and forest configuration (required)")
	cmd.PersistentFlags().IntVarP(&(config.folds), "folds", "k", 5, "number of cross-validation folds")
	return cmd
}

func (ecc *evaluateCmdConfig) Validate() error {
	if ecc.metadataInput == "" {
		return fmt.Errorf("required metadata flag was not set")
	}
	if ecc.folds < 2 {
		return fmt.Errorf("folds flag must be at least 2, got %d", ecc.folds)
	}
	return nil
}

func renderMetrics(result *evaluation.Result[string]) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"label", "precision", "recall"})
	for _, label := range result.Matrix.Labels() {
		precision, _ := result.Matrix.Precision(label)
		recall, _ := result.Matrix.Recall(label)
		t.AppendRow(table.Row{label, fmt.Sprintf("%.4f", precision), fmt.Sprintf("%.4f", recall)})
	}
	return t.Render()
}
