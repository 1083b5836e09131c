// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bus

// DataFunction is a chip that exchanges data over SPI once addressed. It
// carries its own address and SPI settings, bracketing every transfer with
// BeginCommunication/EndCommunication.
type DataFunction struct {
	Addr     Address
	Bus      *LocalBus
	Settings Settings
}

// BeginCommunication latches this function's address and starts the SPI
// transaction with this function's settings.
func (f DataFunction) BeginCommunication() {
	f.Bus.Address(f.Addr)
	f.Bus.SPI.BeginTransaction(f.Settings)
}

// EndCommunication closes the SPI transaction. The bus is left addressed;
// callers that are done for now should call Bus.Deactivate themselves if
// the function dispatch contract requires it.
func (f DataFunction) EndCommunication() {
	f.Bus.SPI.EndTransaction()
}

// Transfer16 performs one 16-bit exchange bracketed by begin/end
// communication, the shape almost every local-bus chip driver reduces to.
func (f DataFunction) Transfer16(v uint16) uint16 {
	f.BeginCommunication()
	defer f.EndCommunication()

	return Transfer16(f.Bus.SPI, v)
}

// TransferBytes performs an arbitrary-width exchange bracketed by
// begin/end communication.
func (f DataFunction) TransferBytes(out []byte) []byte {
	f.BeginCommunication()
	defer f.EndCommunication()

	return f.Bus.SPI.Transfer(out)
}

// TriggerFunction causes an action purely by being addressed; it has no
// data phase.
type TriggerFunction struct {
	Addr Address
	Bus  *LocalBus
}

// Trigger latches this function's address, which is all the hardware needs
// to see in order to act (e.g. latching a shift register's parallel
// outputs, syncing a crossbar).
func (f TriggerFunction) Trigger() {
	f.Bus.Address(f.Addr)
}
