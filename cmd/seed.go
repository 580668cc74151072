package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the fuel and transmission reference tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		created, err := st.Seed(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d reference rows\n", created)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
