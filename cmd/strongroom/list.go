package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strongroom/strongroom/pkg/field"
)

var listCompromised bool

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)

	listCmd.Flags().BoolVar(&listCompromised, "compromised", false, "Mark records with common or breached passwords")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := unlock(); err != nil {
			return err
		}

		records, err := a.GetAllRecords()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("The vault is empty.")
			return nil
		}

		compromised := map[int64]bool{}
		if listCompromised {
			ids, err := a.GetCompromisedRecords(context.Background())
			if err != nil {
				return err
			}
			for _, id := range ids {
				compromised[id] = true
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSUBTITLE\tCATEGORY\tMODIFIED")
		for _, r := range records {
			marker := ""
			if compromised[r.ID] {
				marker = " !"
			}
			fmt.Fprintf(w, "%d\t%s%s\t%s\t%s\t%s\n",
				r.ID, r.Title, marker, r.Subtitle, r.Category,
				r.LastModified.Format("2006-01-02 15:04"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if listCompromised && len(compromised) > 0 {
			fmt.Println("\n! password is common or appeared in a breach")
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Show a record's fields",
	Long: `Show all fields of a record. Sensitive values are hidden;
pass a field id to 'value' to read one.`,
	Args: cobra.ExactArgs(1),
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
		var found bool
		for _, r := range records {
			if r.ID != id {
				continue
			}
			found = true
			fmt.Printf("%s / %s (%s)\n", r.Title, r.Subtitle, r.Category)
			contents, err := a.GetAllContentForRecord(r)
			if err != nil {
				return err
			}
			for _, c := range contents {
				value := c.Value
				if field.Sensitive(c.Kind) {
					value = "••••••"
				}
				fmt.Printf("  [%d] %s (%s): %s\n", c.ID, c.Label, c.Kind, value)
			}
		}
		if !found {
			return fmt.Errorf("record %d not found", id)
		}
		return nil
	},
}
