package cmd

import (
	"encoding/json"

	"status-service/core/appbootstrap"

	"github.com/spf13/cobra"
)

var (
	generateState string
	generateCount int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Insert random incidents and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		app, err := appbootstrap.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		for i := 0; i < generateCount; i++ {
			view, err := app.Generator().Generate(cmd.Context(), generateState)
			if err != nil {
				return err
			}
			if err := enc.Encode(view); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateState, "state", "", "current_state of generated incidents (random when empty)")
	generateCmd.Flags().IntVar(&generateCount, "count", 1, "number of incidents to insert")
}
