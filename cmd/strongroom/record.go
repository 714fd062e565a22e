package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strongroom/strongroom/pkg/field"
	"github.com/strongroom/strongroom/pkg/vault"
)

var (
	recordTitle    string
	recordSubtitle string
)

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.AddCommand(recordAddCmd)
	recordCmd.AddCommand(recordDeleteCmd)
	recordCmd.AddCommand(fieldDeleteCmd)

	recordAddCmd.Flags().StringVar(&recordTitle, "title", "", "Record title")
	recordAddCmd.Flags().StringVar(&recordSubtitle, "subtitle", "", "Record subtitle")
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record operations",
}

var recordAddCmd = &cobra.Command{
	Use:   "add <category>",
	Short: "Add a record",
	Long: `Add a record of the given category (Login, BankCard, Note or Other).
Each field of the category's template is prompted for in turn; sensitive
fields are read without echo. An empty answer keeps the field empty.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := vault.Category(args[0])
		switch category {
		case vault.CategoryLogin, vault.CategoryBankCard, vault.CategoryNote, vault.CategoryOther:
		default:
			return fmt.Errorf("unknown category %q", args[0])
		}
		if err := unlock(); err != nil {
			return err
		}

		record := &vault.Record{Category: category}
		contents, err := a.GetAllContentForRecord(*record)
		if err != nil {
			return err
		}

		if recordTitle == "" {
			recordTitle, err = promptLine("Title: ")
			if err != nil {
				return err
			}
		}
		record.Title = recordTitle
		record.Subtitle = recordSubtitle

		for i := range contents {
			value, err := promptField(&contents[i])
			if err != nil {
				return err
			}
			contents[i].Value = value
		}

		id, err := a.SaveRecord(record, contents)
		if err != nil {
			return err
		}
		fmt.Printf("Saved record %d.\n", id)
		return nil
	},
}

var recordDeleteCmd = &cobra.Command{
	Use:   "delete <record-id>",
	Short: "Delete a record and all its fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "record")
		if err != nil {
			return err
		}
		if err := unlock(); err != nil {
			return err
		}

		if err := a.DeleteRecord(id); err != nil {
			return err
		}
		fmt.Printf("Deleted record %d.\n", id)
		return nil
	},
}

var fieldDeleteCmd = &cobra.Command{
	Use:   "delete-field <content-id>",
	Short: "Delete a single optional field from a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "content")
		if err != nil {
			return err
		}
		if err := unlock(); err != nil {
			return err
		}

		if err := a.DeleteContent(id); err != nil {
			return err
		}
		fmt.Printf("Deleted field %d.\n", id)
		return nil
	},
}

// promptField asks for one field value until it validates or the answer
// is left empty on an optional field.
func promptField(c *vault.Content) (string, error) {
	for {
		var (
			value string
			err   error
		)
		if field.Sensitive(c.Kind) {
			value, err = promptPassword(fmt.Sprintf("%s (%s): ", c.Label, c.Kind))
		} else {
			value, err = promptLine(fmt.Sprintf("%s (%s): ", c.Label, c.Kind))
		}
		if err != nil {
			return "", err
		}
		if value == "" && !c.Required {
			return "", nil
		}
		if msg := a.Validate(string(c.Kind), value); msg != "" {
			fmt.Println(msg)
			continue
		}
		return value, nil
	}
}
