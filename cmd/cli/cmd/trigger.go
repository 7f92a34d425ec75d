package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Fire a cart-abandoned event",
	Long: `Fire a cart-abandoned event for the authenticated tenant.

The engine answers as soon as the run is queued; delivery happens after
the tenant's configured delay. Use 'cartctl status <run-id>' to follow it.

Example:
  cartctl trigger --shop "shop.example" --amount 42.50 --phone "+52 55 1234 5678"`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		tenantID, _ := flags.GetString("tenant-id")
		shop, _ := flags.GetString("shop")
		phone, _ := flags.GetString("phone")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API key not found. Please set it using the --token flag or the CARTFLOW_TOKEN environment variable")
			return
		}
		if tenantID == "" {
			cmd.Println("Error: --tenant-id is required")
			return
		}

		payload := map[string]interface{}{
			"tenant_id": tenantID,
		}
		if shop != "" {
			payload["shop_domain"] = shop
		}
		if phone != "" {
			payload["phone"] = phone
		}
		if flags.Changed("amount") {
			amount, _ := flags.GetFloat64("amount")
			payload["total_price"] = amount
		}

		client := NewEngineClient(url, token)
		result, err := client.Trigger(payload)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Trigger accepted!\nRun ID: %s\n", result.RunID)
	},
}

func init() {
	flags := triggerCmd.Flags()
	flags.String("tenant-id", "", "Tenant identifier (required)")
	flags.String("shop", "", "Storefront domain for the message")
	flags.Float64("amount", 0, "Abandoned cart value")
	flags.String("phone", "", "Customer phone number")

	rootCmd.AddCommand(triggerCmd)
}
