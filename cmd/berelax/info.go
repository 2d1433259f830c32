package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nccreang/berelax/pkg/dataset"
)

var infoDatasetPath string

// infoCmd prints the hierarchy of a dataset store
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the group, attribute and dataset hierarchy of a store",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := dataset.Open(infoDatasetPath)
		if err != nil {
			logrus.Fatalf("Failed to open dataset: %v", err)
		}
		defer store.Close()

		root, err := store.Root()
		if err != nil {
			logrus.Fatalf("Failed to open root group: %v", err)
		}

		fmt.Println(infoDatasetPath)
		if err := printGroup(root, ""); err != nil {
			logrus.Fatalf("Failed to walk hierarchy: %v", err)
		}
	},
}

// printGroup recursively prints a group's attributes, datasets and children
func printGroup(g *dataset.Group, indent string) error {
	attrs, err := g.Attrs()
	if err != nil {
		return err
	}
	for _, a := range attrs {
		if a.Kind == "text" {
			fmt.Printf("%s  @%s = %q\n", indent, a.Name, a.Text)
		} else {
			fmt.Printf("%s  @%s = %g\n", indent, a.Name, a.Num)
		}
	}

	sets, err := g.Datasets()
	if err != nil {
		return err
	}
	for _, d := range sets {
		fmt.Printf("%s  %s  [%d x %d]  fields=%v\n", indent, d.Name(), d.Rows(), d.Cols(), d.Fields())
	}

	children, err := g.Groups()
	if err != nil {
		return err
	}
	for _, child := range children {
		fmt.Printf("%s%s/\n", indent, child.Name())
		if err := printGroup(child, indent+"  "); err != nil {
			return err
		}
	}
	return nil
}

// init sets up the info command flags
func init() {
	infoCmd.Flags().StringVar(&infoDatasetPath, "dataset", "", "Dataset store path")
	infoCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(infoCmd)
}
