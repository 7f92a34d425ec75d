package cmd

import (
	"cartflow/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Onboard a new tenant",
	Long: `Onboard a new tenant (storefront) and print its API key.

The key is shown exactly once; only its hash is stored server-side.

Example:
  cartctl onboard --tenant-id "T1" --name "Shop One" --delay 30
  cartctl onboard --tenant-id "T2" --name "Shop Two" --provider EVOLUTION --provider-token "secret" --phone "5215512345678"`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		tenantID, _ := flags.GetString("tenant-id")
		name, _ := flags.GetString("name")
		provider, _ := flags.GetString("provider")
		providerToken, _ := flags.GetString("provider-token")
		phone, _ := flags.GetString("phone")
		metaPhoneID, _ := flags.GetString("meta-phone-id")
		metaTemplate, _ := flags.GetString("meta-template")

		url := viper.GetString("url")

		if tenantID == "" {
			cmd.Println("Error: --tenant-id is required")
			return
		}
		if name == "" {
			cmd.Println("Error: --name is required")
			return
		}

		req := api.CreateTenantRequest{
			TenantID:         tenantID,
			Name:             name,
			Provider:         provider,
			ProviderToken:    providerToken,
			DestinationPhone: phone,
			MetaPhoneID:      metaPhoneID,
			MetaTemplateName: metaTemplate,
		}
		if flags.Changed("delay") {
			delay, _ := flags.GetInt("delay")
			req.DelayMinutes = &delay
		}

		client := NewEngineClient(url, viper.GetString("token"))
		result, err := client.CreateTenant(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Tenant onboarded!\nID: %s\nName: %s\n", result.TenantID, result.Name)
		cmd.Printf("API Key: %s\n", result.ApiKey)
		cmd.Println("Store this key now; it is not shown again.")
	},
}

func init() {
	flags := onboardCmd.Flags()
	flags.String("tenant-id", "", "Tenant identifier (required)")
	flags.StringP("name", "n", "", "Storefront name (required)")
	flags.Int("delay", 0, "Abandonment delay in minutes (default: 60 server-side)")
	flags.String("provider", "", "WhatsApp provider: NOOP, EVOLUTION, ZOKO or META")
	flags.String("provider-token", "", "Provider API token")
	flags.String("phone", "", "Fallback destination phone")
	flags.String("meta-phone-id", "", "Meta business phone number ID")
	flags.String("meta-template", "", "Meta message template name")

	rootCmd.AddCommand(onboardCmd)
}
