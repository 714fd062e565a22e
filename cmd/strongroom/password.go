package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(passwordCmd)
	passwordCmd.AddCommand(passwordChangeCmd)
	passwordCmd.AddCommand(passwordStrengthCmd)
	passwordCmd.AddCommand(passwordCheckCmd)
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Master password and password health commands",
}

var passwordChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "Change the master password",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(); err != nil {
			return err
		}

		oldPassword, err := promptPassword("Current master password: ")
		if err != nil {
			return err
		}
		newPassword, err := promptPassword("New master password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm new master password: ")
		if err != nil {
			return err
		}

		if err := a.ChangePassword(oldPassword, newPassword, confirm); err != nil {
			return err
		}
		fmt.Println("Master password changed.")
		return nil
	},
}

var passwordStrengthCmd = &cobra.Command{
	Use:   "strength",
	Short: "Score a password from 0 to 100",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("Password to score: ")
		if err != nil {
			return err
		}
		fmt.Printf("%d/100\n", a.PasswordStrength(password))
		return nil
	},
}

var passwordCheckCmd = &cobra.Command{
	Use:   "check <content-id>",
	Short: "Check a stored password against known breaches",
	Long: `Check a stored password against the local common-password list and a
remote breach database. Only a short hash prefix leaves the machine.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "content")
		if err != nil {
			return err
		}
		if err := unlock(); err != nil {
			return err
		}

		status, err := a.CheckPassword(context.Background(), id)
		if err != nil {
			return err
		}
		fmt.Println(string(status))
		return nil
	},
}
