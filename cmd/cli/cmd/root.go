package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cartctl",
	Short: "Cartctl is a command line tool for the cartflow recovery engine",
	Long: `cartctl is the command-line interface for the cartflow abandoned-cart
recovery engine.

Cartflow is a multi-tenant pipeline that turns cart-abandoned events into
delayed WhatsApp recovery messages. Each trigger becomes a durable workflow
run: the engine fetches the tenant's configuration, waits out the tenant's
configured delay, builds the outbound message and dispatches it through the
tenant's WhatsApp provider.

Common workflows:

  Onboard a new tenant (prints the API key once):
    cartctl onboard --tenant-id "T1" --name "Shop One" --delay 30 --provider EVOLUTION

  Fire a cart-abandoned event:
    cartctl trigger --shop "shop.example" --amount 42.50 --phone "+52 55 1234 5678"

  Check a run:
    cartctl status <run-id>

  List recent runs:
    cartctl runs --limit 20

  List tenants:
    cartctl tenants

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    CARTFLOW_API_URL    API endpoint (default: http://localhost:7171)
    CARTFLOW_TOKEN      Tenant API key for authentication`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".cartctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".cartctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "CARTFLOW_VARNAME"
	viper.SetEnvPrefix("CARTFLOW")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cartctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:7171", "Cartflow engine URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API key for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
