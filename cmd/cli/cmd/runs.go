package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent workflow runs",
	Long:  `List the authenticated tenant's recent workflow runs, newest first.`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		limit, _ := flags.GetInt("limit")
		offset, _ := flags.GetInt("offset")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API key not found. Please set it using the --token flag or the CARTFLOW_TOKEN environment variable")
			return
		}

		client := NewEngineClient(url, token)
		result, err := client.ListRuns(limit, offset)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		if len(result.Runs) == 0 {
			cmd.Println("No runs yet.")
			return
		}

		cmd.Printf("%-38s %-12s %-22s %s\n", "RUN", "STATUS", "CREATED", "MESSAGE")
		for _, run := range result.Runs {
			messageID := "-"
			if run.MessageID != nil {
				messageID = *run.MessageID
			}
			cmd.Printf("%-38s %-12s %-22s %s\n",
				run.ID, run.Status, run.CreatedAt.Format("2006-01-02 15:04:05"), messageID)
		}
	},
}

func init() {
	flags := runsCmd.Flags()
	flags.Int("limit", 20, "Maximum number of runs to list")
	flags.Int("offset", 0, "Number of runs to skip")

	rootCmd.AddCommand(runsCmd)
}
