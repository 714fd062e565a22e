package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cloudCmd)
	cloudCmd.AddCommand(cloudEnableCmd)
	cloudCmd.AddCommand(cloudDisableCmd)
	cloudCmd.AddCommand(cloudSyncCmd)
	cloudCmd.AddCommand(cloudRestoreCmd)
	cloudCmd.AddCommand(cloudShowCmd)
}

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Replicate the encrypted vault to an SFTP host",
}

var cloudEnableCmd = &cobra.Command{
	Use:   "enable <address>",
	Short: "Enable sync to an SFTP host",
	Long: `Enable sync. The address may be host or host:port (port 22 by
default). Credentials are stored inside the encrypted vault and the
first upload runs immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(); err != nil {
			return err
		}

		username, err := promptLine("Username: ")
		if err != nil {
			return err
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		if err := a.EnableCloud(args[0], username, password); err != nil {
			return err
		}
		fmt.Println("Cloud sync enabled and the vault uploaded. Run 'strongroom cloud sync' to upload again.")
		return nil
	},
}

var cloudDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable sync and forget the credentials",
	Long:  "Disable sync. The remote copy is not deleted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(); err != nil {
			return err
		}
		if err := a.DisableCloud(); err != nil {
			return err
		}
		fmt.Println("Cloud sync disabled.")
		return nil
	},
}

var cloudSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload the encrypted vault now",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(); err != nil {
			return err
		}
		status, err := a.SaveToCloud()
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	},
}

var cloudRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local vault with the remote copy",
	Long: `Download the remote copy and replace the local vault with it.
Local changes made since the last upload are lost. The session is closed;
log in again with the remote vault's master password.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(); err != nil {
			return err
		}

		answer, err := promptLine("Type 'restore' to replace the local vault: ")
		if err != nil {
			return err
		}
		if answer != "restore" {
			fmt.Println("Aborted.")
			return nil
		}

		if err := a.RestoreFromCloud(); err != nil {
			return err
		}
		fmt.Println("Vault restored from the remote copy. Log in again to open it.")
		return nil
	},
}

var cloudShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the sync target",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(); err != nil {
			return err
		}
		address, username, err := a.CloudData()
		if err != nil {
			return err
		}
		fmt.Printf("Address:  %s\nUsername: %s\n", address, username)
		return nil
	},
}
