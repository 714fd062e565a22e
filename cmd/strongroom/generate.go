package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	generateLength      int
	generateNoNumbers   bool
	generateNoUppercase bool
	generateNoLowercase bool
	generateNoSymbols   bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVarP(&generateLength, "length", "l", 16, "Password length")
	generateCmd.Flags().BoolVar(&generateNoNumbers, "no-numbers", false, "Exclude digits")
	generateCmd.Flags().BoolVar(&generateNoUppercase, "no-uppercase", false, "Exclude uppercase letters")
	generateCmd.Flags().BoolVar(&generateNoLowercase, "no-lowercase", false, "Exclude lowercase letters")
	generateCmd.Flags().BoolVar(&generateNoSymbols, "no-symbols", false, "Exclude symbols")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random password",
	Long: `Generate a cryptographically random password.

Examples:
  # 16 characters from all classes
  strongroom generate

  # 32 characters, letters and digits only
  strongroom generate -l 32 --no-symbols`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := a.GeneratePassword(
			generateLength,
			!generateNoNumbers,
			!generateNoUppercase,
			!generateNoLowercase,
			!generateNoSymbols,
		)
		if err != nil {
			return err
		}
		fmt.Println(password)
		return nil
	},
}
