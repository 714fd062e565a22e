package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(destroyCmd)
}

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete the vault and start over",
	Long: `Delete the local vault and every record in it. This cannot be
undone. A remote sync copy, if one exists, is not touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		answer, err := promptLine("Type 'destroy' to delete the vault permanently: ")
		if err != nil {
			return err
		}
		if answer != "destroy" {
			fmt.Println("Aborted.")
			return nil
		}

		if err := a.StartOver(); err != nil {
			return err
		}
		fmt.Println("Vault destroyed.")
		return nil
	},
}
