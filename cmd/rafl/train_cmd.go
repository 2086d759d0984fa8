package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/C8PAN/rafl"
	"github.com/C8PAN/rafl/metadata"
)

type trainCmdConfig struct {
	*rootCmdConfig
	dataInput     string
	metadataInput string
	output        string
	workers       int
	redisAddr     string
}

func trainCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &trainCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a forest from a set of labelled examples",
		Long:  `Train an online random forest from a set of labelled examples and write it out as JSON`,
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
			q := newQueue("rafl:train", config.redisAddr)
			f, err := rafl.New[string](ctx, md.Forest, q)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			config.log.Infof("Training a %d-tree forest on %d examples with %d descriptor features...", f.Size(), len(examples), md.DescriptorSize())
			start := time.Now()
			for i, e := range examples {
				if len(e.Descriptor()) != md.DescriptorSize() {
					fmt.Fprintf(os.Stderr, "example %d has %d descriptor features, metadata declares %d\n", i, len(e.Descriptor()), md.DescriptorSize())
					os.Exit(5)
				}
				if err := f.AddExample(ctx, e.Descriptor(), e.Label()); err != nil {
					fmt.Fprintf(os.Stderr, "feeding example %d: %v\n", i, err)
					os.Exit(5)
				}
			}
			if err := f.Train(ctx, config.workers, 10*time.Millisecond); err != nil {
				fmt.Fprintf(os.Stderr, "training the forest: %v\n", err)
				os.Exit(6)
			}
			if err := q.Stop(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "stopping the queue: %v\n", err)
				os.Exit(7)
			}
			config.log.Infof("Done in %v", time.Since(start))
			if err := outputForest(ctx, config.output, f); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(8)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV (.csv) or SQLite (.db) file with labelled examples to train on (defaults to STDIN, interpreted as CSV)")
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file with the dataset metadata: descriptor feature names, labels and forest configuration (required)")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to a file to which the trained forest will be written in JSON format (defaults to STDOUT)")
	cmd.PersistentFlags().IntVarP(&(config.workers), "workers", "w", 4, "number of concurrent split-evaluation workers")
	cmd.PersistentFlags().StringVar(&(config.redisAddr), "redis", "", "address of a redis server to back the split-evaluation queue (defaults to an in-memory queue)")
	return cmd
}

func (tcc *trainCmdConfig) Validate() error {
	if tcc.metadataInput == "" {
		return fmt.Errorf("required metadata flag was not set")
	}
	if tcc.workers <= 0 {
		return fmt.Errorf("workers flag must be positive, got %d", tcc.workers)
	}
	return nil
}

func outputForest(ctx context.Context, output string, f *rafl.Forest[string]) error {
	var w *os.File
	if output == "" {
		w = os.Stdout
	} else {
		var err error
		w, err = os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file %s: %v", output, err)
		}
		defer w.Close()
	}
	if err := f.WriteJSON(ctx, w); err != nil {
		return fmt.Errorf("writing forest: %v", err)
	}
	return nil
}
