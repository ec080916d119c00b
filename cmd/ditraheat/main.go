package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ditraheat",
	Short: "DITRA-HEAT-E-WiFi Control CLI",
	Long: `A command line interface for Schluter DITRA-HEAT-E-WiFi floor heating
thermostats. It talks to the vendor cloud and can expose the thermostat over
MQTT, a local REST API or HomeKit.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
