// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package carrier implements the top-level entity holding a device's
// clusters, CTRL-Block, and ADC channel map, and the config/reset/
// get-entities data-contract dispatch that front-ends this tree (§4.5,
// §6.1). The JSON-line transport these handlers are called from is out of
// scope here; this package only implements what the handlers delegate to.
package carrier

import (
	"encoding/json"
	"fmt"

	"github.com/anabrid/lucidac-firmware/block"
	"github.com/anabrid/lucidac-firmware/cluster"
	"github.com/anabrid/lucidac-firmware/entity"
)

const carrierTypeID = 1

// NumADCChannels is the number of logical ADC channels the carrier's
// crossbar switch can route to (§3.1: "eight ADC channels").
const NumADCChannels = 8

// ADCChannelDisabled marks a logical ADC channel as not routed to any
// lane, matching the original's ADC_CHANNEL_DISABLED sentinel.
const ADCChannelDisabled int8 = -1

// Carrier is the Entity tree root: it owns its Clusters, the CTRL-Block,
// and the ADC channel map exclusively (§3.5).
type Carrier struct {
	eui      entity.EUI64
	clusters []*cluster.Cluster
	ctrl     *block.CTRLBlock
	hal      HAL

	// adcChannels[i] names which lane (a cluster-gain bus output, 0-15)
	// feeds logical ADC channel i, or ADCChannelDisabled if channel i is
	// unrouted (§2 feature table "ADC channel map", §8 duplicate-reject
	// boundary behaviour).
	adcChannels [NumADCChannels]int8
}

// HAL is the hardware-facing half of the Carrier: the crossbar switch
// that routes up to 16 cluster-gain lanes onto the carrier's 8 ADC
// channels (§4.2's MT8816-style crossbar, grounded on the original's
// LUCIDAC_HAL::write_adc_bus_mux).
type HAL interface {
	WriteADCChannels(channels [NumADCChannels]int8)
}

func New(eui entity.EUI64, clusters []*cluster.Cluster, ctrl *block.CTRLBlock, hal HAL) *Carrier {
	c := &Carrier{eui: eui, clusters: clusters, ctrl: ctrl, hal: hal}
	c.ResetADCChannels()

	return c
}

func (c *Carrier) ID() string { return c.eui.String() }

func (c *Carrier) Classifier() entity.Classifier {
	return entity.Classifier{Class: entity.ClassCarrier, Type: carrierTypeID, Version: entity.Version{Major: 1}}
}

func (c *Carrier) Children() []entity.Entity {
	out := make([]entity.Entity, 0, len(c.clusters)+1)
	for _, cl := range c.clusters {
		out = append(out, cl)
	}

	return out
}

func (c *Carrier) ConfigSelfFromJSON(obj map[string]json.RawMessage) error {
	raw, ok := obj["adc_channels"]
	if !ok {
		return nil
	}

	var in [NumADCChannels]*int8
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("carrier: adc_channels: %w", err)
	}

	var channels [NumADCChannels]int8
	for i, v := range in {
		if v == nil {
			channels[i] = ADCChannelDisabled
		} else {
			channels[i] = *v
		}
	}

	return c.SetADCChannels(channels)
}

func (c *Carrier) ConfigSelfToJSON() (map[string]json.RawMessage, error) {
	out := make([]any, NumADCChannels)
	for i, lane := range c.adcChannels {
		if lane == ADCChannelDisabled {
			out[i] = nil
		} else {
			out[i] = lane
		}
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}

	return map[string]json.RawMessage{"adc_channels": raw}, nil
}

func (c *Carrier) WriteToHardware() error {
	if c.ctrl != nil {
		if err := c.ctrl.WriteToHardware(); err != nil {
			return err
		}
	}

	if c.hal != nil {
		c.hal.WriteADCChannels(c.adcChannels)
	}

	return nil
}

// ADCChannels returns the current per-channel lane routing (original
// carrier.cpp's get_adc_channels).
func (c *Carrier) ADCChannels() [NumADCChannels]int8 { return c.adcChannels }

// SetADCChannels validates and replaces the whole channel map at once:
// every lane must be a valid U-Block output (0-15) or ADCChannelDisabled,
// and no lane may be claimed by more than one channel (§8: "set_adc_channels
// rejects duplicates"; grounded on the original's set_adc_channels).
func (c *Carrier) SetADCChannels(channels [NumADCChannels]int8) error {
	seen := make(map[int8]bool, NumADCChannels)

	for _, lane := range channels {
		if lane == ADCChannelDisabled {
			continue
		}

		if lane < 0 || lane >= 16 {
			return fmt.Errorf("carrier: adc channel lane %d out of range", lane)
		}

		if seen[lane] {
			return fmt.Errorf("carrier: adc channel lane %d assigned to more than one channel", lane)
		}

		seen[lane] = true
	}

	c.adcChannels = channels

	return nil
}

// SetADCChannel sets one logical ADC channel's source lane, rejecting a
// lane already claimed by a different channel (original carrier.cpp's
// set_adc_channel). A negative lane disables the channel.
func (c *Carrier) SetADCChannel(idx int, lane int8) error {
	if idx < 0 || idx >= NumADCChannels {
		return fmt.Errorf("carrier: adc channel index %d out of range", idx)
	}

	if lane < 0 {
		lane = ADCChannelDisabled
	} else if lane >= 16 {
		return fmt.Errorf("carrier: adc channel lane %d out of range", lane)
	}

	if lane != ADCChannelDisabled {
		for other, l := range c.adcChannels {
			if other != idx && l == lane {
				return fmt.Errorf("carrier: adc channel lane %d already routed to channel %d", lane, other)
			}
		}
	}

	c.adcChannels[idx] = lane

	return nil
}

// ResetADCChannels disables every logical ADC channel.
func (c *Carrier) ResetADCChannels() {
	for i := range c.adcChannels {
		c.adcChannels[i] = ADCChannelDisabled
	}
}

// GetEntities implements the get_entities data contract: {entities:
// {<eui>: classifier_with_children}} (§6.1).
func (c *Carrier) GetEntities() (map[string]any, entity.Status) {
	return map[string]any{"entities": map[string]any{c.ID(): c.describeWithChildren(c)}}, entity.Status{}
}

func (c *Carrier) describeWithChildren(e entity.Entity) map[string]any {
	out := map[string]any{"classifier": entity.ToJSON(e.Classifier(), c.childEUI(e))}

	for _, child := range e.Children() {
		out["/"+child.ID()] = c.describeWithChildren(child)
	}

	return out
}

// childEUI returns the carrier's own EUI for itself and the zero EUI for
// every descendant: only the carrier's identity memory carries a real
// EUI-64 in this tree (§3.2 invariant is about module-level entities,
// which clusters and blocks aren't detected as themselves).
func (c *Carrier) childEUI(e entity.Entity) entity.EUI64 {
	if e == entity.Entity(c) {
		return c.eui
	}

	return entity.EUI64{}
}

// GetConfig implements the get_config data contract: {entity:[path],
// config:<tree>, recursive?:bool} (§6.1).
func (c *Carrier) GetConfig(path []string, recursive bool) (map[string]json.RawMessage, entity.Status) {
	target, status := c.resolve(path)
	if !status.OK() {
		return nil, status
	}

	cfg, err := entity.ConfigToJSON(target, recursive)
	if err != nil {
		return nil, entity.NewStatus(entity.CodeDelegateRejected, "carrier: get_config: %v", err)
	}

	return cfg, entity.Status{}
}

// SetConfig implements the set_config data contract, applying cfg and
// returning the applied configuration as read back (§6.1).
func (c *Carrier) SetConfig(path []string, cfg map[string]json.RawMessage) (map[string]json.RawMessage, entity.Status) {
	target, status := c.resolve(path)
	if !status.OK() {
		return nil, status
	}

	if status := entity.ConfigFromJSON(target, cfg); !status.OK() {
		return nil, status
	}

	if status := entity.WriteTreeToHardware(target); !status.OK() {
		return nil, status
	}

	applied, err := entity.ConfigToJSON(target, false)
	if err != nil {
		return nil, entity.NewStatus(entity.CodeDelegateRejected, "carrier: set_config read-back: %v", err)
	}

	return applied, entity.Status{}
}

func (c *Carrier) resolve(path []string) (entity.Entity, entity.Status) {
	if len(path) == 0 {
		return c, entity.Status{}
	}

	if path[0] != c.ID() {
		return nil, entity.NewStatus(entity.CodeWrongCarrierID, "carrier: path targets %q, this carrier is %q", path[0], c.ID())
	}

	target, ok := entity.ResolveChildEntity(entity.Entity(c), path[1:])
	if !ok {
		return nil, entity.NewStatus(entity.CodeUnresolvedChild, "carrier: unresolved path %v", path)
	}

	return target, entity.Status{}
}

// ResetOptions mirrors the reset data contract's optional flags (§6.1).
type ResetOptions struct {
	KeepCalibration bool
	OverloadReset   bool
	CircuitReset    bool
	Sync            bool
}

// Reset implements the reset data contract: resets every cluster and the
// ADC channel map unconditionally, matching the original's
// carrier::reset (§4.5, §6.1).
func (c *Carrier) Reset(opts ResetOptions) entity.Status {
	for _, cl := range c.clusters {
		if err := cl.Reset(opts.KeepCalibration); err != nil {
			return entity.NewStatus(entity.CodeHardwareFlush, "carrier: reset: %v", err)
		}
	}

	c.ResetADCChannels()

	if status := entity.WriteTreeToHardware(c); !status.OK() {
		return status
	}

	return entity.Status{}
}

func (c *Carrier) Cluster(idx int) (*cluster.Cluster, error) {
	if idx < 0 || idx >= len(c.clusters) {
		return nil, fmt.Errorf("carrier: cluster index %d out of range", idx)
	}

	return c.clusters[idx], nil
}

func (c *Carrier) CTRLBlock() *block.CTRLBlock { return c.ctrl }
