package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the configured wizard steps and their fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		steps, err := loadSteps(cfg)
		if err != nil {
			return err
		}

		for i, step := range steps {
			fmt.Printf("%d. %s (%s)\n", i+1, step.Label, step.ID)
			for _, field := range step.Fields {
				marker := " "
				if field.Required {
					marker = "*"
				}
				suffix := ""
				if field.When != nil {
					suffix = fmt.Sprintf(" [when %s = %q]", field.When.Field, field.When.Equals)
				}
				fmt.Printf("   %s %-24s %s%s\n", marker, field.Key, field.Kind, suffix)
			}
		}
		return nil
	},
}
