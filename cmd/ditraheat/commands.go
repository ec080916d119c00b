package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zberg/go-ditraheat/internal/accessory"
	"github.com/zberg/go-ditraheat/internal/api"
	"github.com/zberg/go-ditraheat/internal/config"
	"github.com/zberg/go-ditraheat/internal/homekit"
	"github.com/zberg/go-ditraheat/internal/logger"
	"github.com/zberg/go-ditraheat/internal/mqttbridge"
	"github.com/zberg/go-ditraheat/pkg/ditraheat"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
	v       = viper.New()
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./ditraheat.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("email", "", "account email")
	flags.String("serial", "", "thermostat serial number")
	flags.String("regulation-mode", "schedule", "mode used for setpoint writes (schedule, temporary, permanent)")

	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("email", flags.Lookup("email"))
	_ = v.BindPFlag("serial_number", flags.Lookup("serial"))
	_ = v.BindPFlag("regulation_mode", flags.Lookup("regulation-mode"))

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(unitCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(homekitCmd)

	targetCmd.Flags().String("mode", "", "Regulation mode (temporary, permanent, schedule)")
	targetCmd.Flags().String("until", "", "End of a temporary setpoint: duration (3h) or RFC 3339 time")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show temperature, setpoint and display unit",
	Run: func(cmd *cobra.Command, args []string) {
		client, _, _ := getClient()
		ctx, stop := signalContext()
		defer stop()

		st, err := client.State(ctx)
		if err != nil {
			fmt.Printf("Error reading thermostat: %v\n", err)
			os.Exit(1)
		}
		unit, err := client.TemperatureUnit(ctx)
		if err != nil {
			fmt.Printf("Error reading display unit: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Thermostat %s\n", client.SerialNumber())
		fmt.Printf("  Temperature: %.2f\n", st.Temperature)
		fmt.Printf("  Setpoint:    %.2f\n", st.TargetTemperature)
		fmt.Printf("  Units:       %s\n", unit)
	},
}

var targetCmd = &cobra.Command{
	Use:   "target [degrees]",
	Short: "Set the target temperature",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		degrees, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			fmt.Printf("Invalid temperature '%s': must be a number\n", args[0])
			os.Exit(1)
		}
		if err := ditraheat.CheckTemperature(degrees); err != nil {
			fmt.Printf("Invalid temperature '%s': %v\n", args[0], err)
			os.Exit(1)
		}

		modeStr, _ := cmd.Flags().GetString("mode")
		untilStr, _ := cmd.Flags().GetString("until")

		var until time.Time
		if untilStr != "" {
			until, err = parseUntil(untilStr, time.Now())
			if err != nil {
				fmt.Printf("Invalid --until '%s': %v\n", untilStr, err)
				os.Exit(1)
			}
		}

		client, _, _ := getClient()
		ctx, stop := signalContext()
		defer stop()

		mode := client.RegulationMode()
		switch {
		case modeStr != "":
			mode, err = ditraheat.ParseRegulationMode(modeStr)
			if err != nil {
				fmt.Printf("Invalid --mode '%s': %v\n", modeStr, err)
				os.Exit(1)
			}
		case !until.IsZero():
			mode = ditraheat.ModeTemporary
		}

		if err := client.SetTargetTemperatureMode(ctx, degrees, mode, until); err != nil {
			fmt.Printf("Error setting target temperature: %v\n", err)
			os.Exit(1)
		}
		if mode == ditraheat.ModeSchedule {
			fmt.Println("Thermostat returned to its schedule.")
			return
		}
		fmt.Printf("Target set to %.2f (%s).\n", degrees, mode)
	},
}

var unitCmd = &cobra.Command{
	Use:   "unit [celsius|fahrenheit]",
	Short: "Show or change the account display unit",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, _, _ := getClient()
		ctx, stop := signalContext()
		defer stop()

		if len(args) == 0 {
			unit, err := client.TemperatureUnit(ctx)
			if err != nil {
				fmt.Printf("Error reading display unit: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(unit)
			return
		}

		unit, err := ditraheat.ParseTemperatureUnit(args[0])
		if err != nil {
			fmt.Printf("Invalid unit '%s': %v\n", args[0], err)
			os.Exit(1)
		}
		if err := client.SetTemperatureUnit(ctx, unit); err != nil {
			fmt.Printf("Error setting display unit: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Display unit set to %s.\n", unit)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Return the thermostat to its programmed schedule",
	Run: func(cmd *cobra.Command, args []string) {
		client, _, _ := getClient()
		ctx, stop := signalContext()
		defer stop()

		if err := client.SetScheduleMode(ctx); err != nil {
			fmt.Printf("Error resuming schedule: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Thermostat returned to its schedule.")
	},
}

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Publish the thermostat on an MQTT broker",
	Run: func(cmd *cobra.Command, args []string) {
		client, cfg, log := getClient()
		ctx, stop := signalContext()
		defer stop()

		bcfg := mqttbridge.Config{
			Broker:       cfg.MQTT.Broker,
			ClientID:     cfg.MQTT.ClientID,
			Username:     cfg.MQTT.Username,
			Password:     cfg.MQTT.Password,
			TopicPrefix:  cfg.MQTT.TopicPrefix,
			PollInterval: cfg.PollInterval,
		}
		mc, err := mqttbridge.Connect(bcfg, log)
		if err != nil {
			fmt.Printf("Error connecting to broker: %v\n", err)
			os.Exit(1)
		}
		defer mc.Disconnect(250)

		bridge := mqttbridge.New(mc, accessory.New(client, log), bcfg, log)
		if err := bridge.Run(ctx); err != nil {
			fmt.Printf("Bridge stopped: %v\n", err)
			os.Exit(1)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a local REST API for the thermostat",
	Run: func(cmd *cobra.Command, args []string) {
		client, cfg, log := getClient()
		ctx, stop := signalContext()
		defer stop()

		handler := api.NewHandler(accessory.New(client, log), log)
		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler.InitRoutes(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("http server listening", "addr", cfg.HTTP.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				fmt.Printf("Error serving: %v\n", err)
				os.Exit(1)
			}
		case <-ctx.Done():
			log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("Server forced to shutdown: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

var homekitCmd = &cobra.Command{
	Use:   "homekit",
	Short: "Publish the thermostat as a HomeKit accessory",
	Run: func(cmd *cobra.Command, args []string) {
		client, cfg, log := getClient()
		ctx, stop := signalContext()
		defer stop()

		hcfg := homekit.Config{
			Name:         cfg.HomeKit.Name,
			SerialNumber: client.SerialNumber(),
			Pin:          cfg.HomeKit.Pin,
			StorePath:    cfg.HomeKit.StorePath,
			Addr:         cfg.HomeKit.Addr,
			PollInterval: cfg.PollInterval,
		}
		acc := homekit.New(accessory.New(client, log), hcfg, log)
		if err := acc.Run(ctx, hcfg); err != nil {
			fmt.Printf("HomeKit server stopped: %v\n", err)
			os.Exit(1)
		}
	},
}

// parseUntil accepts a duration from now or an absolute RFC 3339 time.
func parseUntil(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return time.Time{}, errors.New("duration must be positive")
		}
		return now.Add(d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("expected a duration like 3h or an RFC 3339 time")
	}
	if !t.After(now) {
		return time.Time{}, errors.New("time is in the past")
	}
	return t, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func getClient() (*ditraheat.Client, *config.Config, *slog.Logger) {
	config.LoadDotEnv()
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	client, err := cfg.NewClient(log)
	if err != nil {
		fmt.Printf("Error creating client: %v\n", err)
		os.Exit(1)
	}
	return client, cfg, log
}
