// Package main provides the strongroom CLI, a terminal front-end to the
// vault engine.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/strongroom/strongroom/internal/app"
	"github.com/strongroom/strongroom/internal/config"
)

var (
	configPath string
	a          *app.App
)

var rootCmd = &cobra.Command{
	Use:   "strongroom",
	Short: "strongroom is an encrypted personal-data vault",
	Long: `An encrypted local vault for logins, bank cards and notes,
with password health checks, TOTP codes and optional SFTP sync.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLoader(configPath).Load()
		if err != nil {
			return err
		}

		log.SetHandler(cli.New(os.Stderr))
		if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
			log.SetLevel(level)
		}

		a = app.New(cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if a != nil {
			a.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// promptLine reads one line of visible input.
func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// unlock prompts for the master password and opens a session. Register
// mode is reported as an error pointing at init.
func unlock() error {
	switch a.InitializeWindow() {
	case app.WindowRegister:
		return fmt.Errorf("no vault found, run 'strongroom init' first")
	case app.WindowMain:
		return nil
	}

	password, err := promptPassword("Master password: ")
	if err != nil {
		return err
	}
	return a.Login(password)
}
