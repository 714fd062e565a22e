package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new vault",
	Long: `Create a new encrypted vault protected by a master password.

The master password is the single secret everything else is derived from:
it cannot be recovered if forgotten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("Master password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm master password: ")
		if err != nil {
			return err
		}

		if err := a.Register(password, confirm); err != nil {
			return err
		}

		score := a.PasswordStrength(password)
		fmt.Printf("Vault created (password strength: %d/100)\n", score)
		if score < 50 {
			fmt.Println("Consider a longer master password; it protects everything in the vault.")
		}
		return nil
	},
}
