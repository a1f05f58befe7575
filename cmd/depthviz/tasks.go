package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stevecastle/depthviz/dataset"
	"github.com/stevecastle/depthviz/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List evaluation tasks and registered datasets",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		registered := tasks.GetTasks()
		for _, id := range registered.IDs() {
			fmt.Fprintf(w, "%s\t%s\n", id, registered[id].Name)
		}
		for _, name := range dataset.Names() {
			fmt.Fprintf(w, "dataset\t%s\n", name)
		}
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
