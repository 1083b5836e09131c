// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command lucictl brings up a LUCIDAC carrier over a Linux spidev device
// and drives its entity tree from the command line: listing entities,
// reading and pushing configuration, and resetting every cluster (§6.1's
// data contract, called directly rather than over the JSON-line
// transport).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/anabrid/lucidac-firmware/board/lucidac"
	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/carrier"
	"github.com/anabrid/lucidac-firmware/hwgpio"
)

func main() {
	var spidev, csPin, latchPin, resetPin string

	rootCmd := &cobra.Command{
		Use:   "lucictl",
		Short: "Inspect and configure a LUCIDAC analog/digital computer carrier",
	}
	rootCmd.PersistentFlags().StringVar(&spidev, "spidev", "/dev/spidev0.0", "spidev device node the local bus is wired to")
	rootCmd.PersistentFlags().StringVar(&csPin, "cs-pin", "GPIO5", "local bus chip-select GPIO line name")
	rootCmd.PersistentFlags().StringVar(&latchPin, "latch-pin", "GPIO6", "local bus address-latch GPIO line name")
	rootCmd.PersistentFlags().StringVar(&resetPin, "reset-pin", "GPIO13", "local bus reset GPIO line name")

	entitiesCmd := &cobra.Command{
		Use:   "entities",
		Short: "List the carrier's entity tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bringUp(spidev, csPin, latchPin, resetPin)
			if err != nil {
				return err
			}

			tree, status := c.GetEntities()
			if !status.OK() {
				return status
			}

			return printJSON(tree)
		},
	}

	var recursive bool

	getCmd := &cobra.Command{
		Use:   "get [path...]",
		Short: "Read an entity's configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bringUp(spidev, csPin, latchPin, resetPin)
			if err != nil {
				return err
			}

			cfg, status := c.GetConfig(args, recursive)
			if !status.OK() {
				return status
			}

			return printJSON(cfg)
		},
	}
	getCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "include descendant configuration")

	setCmd := &cobra.Command{
		Use:   "set [path...] --config json",
		Short: "Push configuration to an entity and flush it to hardware",
		RunE: func(cmd *cobra.Command, args []string) error {
			configJSON, _ := cmd.Flags().GetString("config")
			if configJSON == "" {
				return fmt.Errorf("--config is required")
			}

			var cfg map[string]json.RawMessage
			if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
				return fmt.Errorf("lucictl: parsing --config: %w", err)
			}

			c, err := bringUp(spidev, csPin, latchPin, resetPin)
			if err != nil {
				return err
			}

			applied, status := c.SetConfig(args, cfg)
			if !status.OK() {
				return status
			}

			return printJSON(applied)
		},
	}
	setCmd.Flags().String("config", "", "configuration to apply, as a JSON object")

	var keepCalibration, overloadReset, circuitReset bool

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset every cluster to its default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bringUp(spidev, csPin, latchPin, resetPin)
			if err != nil {
				return err
			}

			status := c.Reset(carrier.ResetOptions{
				KeepCalibration: keepCalibration,
				OverloadReset:   overloadReset,
				CircuitReset:    circuitReset,
			})
			if !status.OK() {
				return status
			}

			fmt.Println("reset ok")
			return nil
		},
	}
	resetCmd.Flags().BoolVar(&keepCalibration, "keep-calibration", false, "preserve trim/offset calibration")
	resetCmd.Flags().BoolVar(&overloadReset, "overload", false, "set the overload-reset option (the carrier reset does not act on it)")
	resetCmd.Flags().BoolVar(&circuitReset, "circuit", false, "set the circuit-reset option (the carrier reset does not act on it)")

	rootCmd.AddCommand(entitiesCmd, getCmd, setCmd, resetCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bringUp opens the spidev device, resolves the three control lines
// through the host's gpiochip via periph.io, and brings up the carrier
// (§4.5).
func bringUp(spidev, csPin, latchPin, resetPin string) (*carrier.Carrier, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("lucictl: periph host init: %w", err)
	}

	spi, err := bus.OpenLinuxSPI(spidev)
	if err != nil {
		return nil, fmt.Errorf("lucictl: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	latch := gpioreg.ByName(latchPin)
	reset := gpioreg.ByName(resetPin)
	if cs == nil || latch == nil || reset == nil {
		return nil, fmt.Errorf("lucictl: one of cs/latch/reset GPIO lines (%s/%s/%s) was not found", csPin, latchPin, resetPin)
	}

	cfg := lucidac.Config{
		SPI: spi,
		Pins: lucidac.Pins{
			CS:    hwgpio.PeriphPin{P: cs},
			Latch: hwgpio.PeriphPin{P: latch},
			Reset: hwgpio.PeriphPin{P: reset},
		},
	}

	c, err := lucidac.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("lucictl: bring-up: %w", err)
	}

	return c, nil
}

func printJSON(v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(strings.TrimSpace(string(buf)))
	return nil
}
