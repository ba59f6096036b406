// Package main provides the fieldvisit CLI, an interactive terminal wizard
// for recording school observation visits.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
