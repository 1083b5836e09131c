// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package entity

import "testing"

func TestClassifierRoundTrip(t *testing.T) {
	cases := []Classifier{
		{Class: ClassUBlock, Type: 1, Version: Version{1, 0, 0}, Variant: 0},
		{Class: ClassCBlock, Type: 2, Version: Version{3, 1, 4}, Variant: 9},
		{Class: ClassMBlock, Type: 0, Version: Version{0, 0, 0}, Variant: 255},
		{Class: ClassCTRLBlock, Type: 255, Version: Version{255, 255, 255}, Variant: 1},
	}

	for _, c := range cases {
		got := ClassifierFromBytes(c.Bytes())
		if got != c {
			t.Errorf("round trip mismatch: in=%+v out=%+v", c, got)
		}
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	in := Memory{
		Version:    MemoryLayoutV1,
		Size:       MemorySize,
		Classifier: Classifier{Class: ClassUBlock, Type: 1, Version: Version{1, 2, 3}, Variant: 4},
		EUI:        EUI64{0, 1, 2, 3, 4, 5, 6, 7},
	}

	out, err := ParseMemory(in.Bytes())
	if err != nil {
		t.Fatalf("ParseMemory: %v", err)
	}

	if out.Classifier != in.Classifier {
		t.Errorf("classifier mismatch: in=%+v out=%+v", in.Classifier, out.Classifier)
	}
	if out.EUI != in.EUI {
		t.Errorf("eui mismatch: in=%v out=%v", in.EUI, out.EUI)
	}
}

func TestParseMemoryRejectsUnknownVersion(t *testing.T) {
	var raw [MemorySize]byte
	raw[0] = 0xFF

	if _, err := ParseMemory(raw); err == nil {
		t.Fatal("expected error for unsupported layout version")
	}
}

func TestEUI64String(t *testing.T) {
	e := EUI64{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01, 0x02, 0x03}
	want := "de-ad-be-ef-00-01-02-03"

	if got := e.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestClassifierJSONRoundTrip(t *testing.T) {
	c := Classifier{Class: ClassIBlock, Type: 1, Version: Version{1, 0, 2}, Variant: 0}
	eui := EUI64{1, 2, 3, 4, 5, 6, 7, 8}

	cj := ToJSON(c, eui)
	if cj.EUI != eui.String() {
		t.Errorf("eui = %q, want %q", cj.EUI, eui.String())
	}

	back := FromJSON(cj)
	if back != c {
		t.Errorf("FromJSON(ToJSON(c)) = %+v, want %+v", back, c)
	}
}
