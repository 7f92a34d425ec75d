package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "List onboarded tenants",
	Long:  `List all onboarded tenants with their provider and delay configuration. API keys and provider tokens are never shown.`,
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString("url")

		client := NewEngineClient(url, viper.GetString("token"))
		result, err := client.ListTenants()
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		if len(result.Tenants) == 0 {
			cmd.Println("No tenants onboarded yet.")
			return
		}

		cmd.Printf("%-16s %-24s %-10s %-8s %s\n", "TENANT", "NAME", "PROVIDER", "DELAY", "HEALTH")
		for _, t := range result.Tenants {
			provider := t.Provider
			if provider == "" {
				provider = "NOOP"
			}
			delay := "60m"
			if t.DelayMinutes != nil {
				delay = formatMinutes(*t.DelayMinutes)
			}
			cmd.Printf("%-16s %-24s %-10s %-8s %s\n", t.TenantID, t.Name, provider, delay, t.HealthStatus)
		}
	},
}

func formatMinutes(m int) string {
	if m == 0 {
		return "none"
	}
	if m%60 == 0 {
		return fmt.Sprintf("%dh", m/60)
	}
	return fmt.Sprintf("%dm", m)
}

func init() {
	rootCmd.AddCommand(tenantsCmd)
}
