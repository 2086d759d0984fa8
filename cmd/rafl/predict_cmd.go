package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/C8PAN/rafl"
	"github.com/C8PAN/rafl/example"
	"github.com/C8PAN/rafl/queue"
)

type predictCmdConfig struct {
	*rootCmdConfig
	forestInput string
	descriptor  string
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify a descriptor with a trained forest",
		Long:  `Load a trained forest from its JSON serialization and classify a feature descriptor, printing the predicted label and the confidence for every known label`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			ctx := context.Background()
			d, err := parseDescriptor(config.descriptor)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			f, err := loadForest(ctx, config.forestInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			label, masses, err := f.Predict(ctx, d)
			if err != nil {
				fmt.Fprintf(os.Stderr, "classifying descriptor: %v\n", err)
				os.Exit(4)
			}
			fmt.Printf("Predicted label: %s\n", label)
			labels := make([]string, 0, len(masses))
			for l := range masses {
				labels = append(labels, l)
			}
			sort.Strings(labels)
			for _, l := range labels {
				fmt.Printf("  %s: %.4f\n", l, masses[l])
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.forestInput), "forest", "f", "", "path to a file from which the forest will be read and parsed as JSON (required)")
	cmd.PersistentFlags().StringVarP(&(config.descriptor), "descriptor", "d", "", "comma-separated feature values of the descriptor to classify (required)")
	return cmd
}

func (pcc *predictCmdConfig) Validate() error {
	if pcc.forestInput == "" {
		return fmt.Errorf("required forest flag was not set")
	}
	if pcc.descriptor == "" {
		return fmt.Errorf("required descriptor flag was not set")
	}
	return nil
}

func parseDescriptor(s string) (example.Descriptor, error) {
	fields := strings.Split(s, ",")
	d := make(example.Descriptor, 0, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing descriptor feature %d: %v", i, err)
		}
		d = append(d, v)
	}
	return d, nil
}

func loadForest(ctx context.Context, path string) (*rafl.Forest[string], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening forest file %s: %v", path, err)
	}
	defer f.Close()
	forest, err := rafl.ReadJSONForest[string](ctx, f, queue.New())
	if err != nil {
		return nil, fmt.Errorf("loading forest from %s: %v", path, err)
	}
	return forest, nil
}
