package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scriptmentor/internal/mentors"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "mentors",
		Short: "List the available mentors",
		Args:  cobra.NoArgs,
		Run:   runMentors,
	})
}

func runMentors(cmd *cobra.Command, args []string) {
	registry, err := mentors.NewRegistry()
	if err != nil {
		exitErr("load mentors", err)
	}
	if !textOutput() {
		printJSON(registry.List())
		return
	}
	for _, m := range registry.List() {
		fmt.Printf("%-12s %-22s %s\n", m.ID, m.Name, strings.Join(m.Priorities, ", "))
	}
}
