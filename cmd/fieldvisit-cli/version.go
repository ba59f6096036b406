package main

import (
	"fmt"

	"github.com/spf13/cobra"

	fieldvisit "github.com/goliatone/go-fieldvisit"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fieldvisit version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("fieldvisit", fieldvisit.Version)
	},
}
