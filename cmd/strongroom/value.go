package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/strongroom/strongroom/pkg/field"
)

func init() {
	rootCmd.AddCommand(valueCmd)
	rootCmd.AddCommand(totpCmd)
	rootCmd.AddCommand(cardCmd)
}

var valueCmd = &cobra.Command{
	Use:   "value <content-id>",
	Short: "Print the decrypted value of one field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "content")
		if err != nil {
			return err
		}
		if err := unlock(); err != nil {
			return err
		}

		value, err := a.GetContentValue(id)
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var totpCmd = &cobra.Command{
	Use:   "totp <record-id>",
	Short: "Print the current TOTP codes of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "record")
		if err != nil {
			return err
		}
		if err := unlock(); err != nil {
			return err
		}

		records, err := a.GetAllRecords()
		if err != nil {
			return err
		}
		for _, r := range records {
			if r.ID != id {
				continue
			}
			contents, err := a.GetAllContentForRecord(r)
			if err != nil {
				return err
			}
			printed := false
			for _, c := range contents {
				if c.Kind != field.TOTPSecret {
					continue
				}
				code, seconds, err := a.GetTOTPCode(c.ID)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s (%ds left)\n", c.Label, code, seconds)
				printed = true
			}
			if !printed {
				return fmt.Errorf("record %d has no TOTP fields", id)
			}
			return nil
		}
		return fmt.Errorf("record %d not found", id)
	},
}

var cardCmd = &cobra.Command{
	Use:   "card <content-id>",
	Short: "Identify the card network of a stored card number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "content")
		if err != nil {
			return err
		}
		if err := unlock(); err != nil {
			return err
		}

		network, err := a.CardType(id)
		if err != nil {
			return err
		}
		fmt.Println(network)
		return nil
	},
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}
