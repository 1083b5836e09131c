// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package entity implements the polymorphic carrier/cluster/block/element
// tree, its classifier-based dynamic hardware detection, and the recursive
// JSON configuration protocol used to address and reconfigure it.
package entity

import "fmt"

// Status is the uniform {code, message} result carried through the
// configuration protocol (§7). Code 0 is success; handlers reserve small
// per-handler code ranges for specific failure reasons.
type Status struct {
	Code    int
	Message string
}

// Error-code ranges reserved by the entity tree's own operations (§4.3).
const (
	CodeOK = 0

	CodeMalformedEnvelope = 1
	CodeInvalidPathDepth  = 2
	CodeWrongCarrierID    = 3
	CodeUnresolvedChild   = 4
	CodeDelegateRejected  = 5
	CodeHardwareFlush     = 6
)

// Error implements the error interface so Status can be returned and
// compared through ordinary Go error handling.
func (s Status) Error() string {
	return fmt.Sprintf("entity: [%d] %s", s.Code, s.Message)
}

// OK reports whether the status represents success.
func (s Status) OK() bool { return s.Code == CodeOK }

// NewStatus builds a non-zero Status, formatting message like fmt.Sprintf.
func NewStatus(code int, format string, args ...any) Status {
	return Status{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsStatus unwraps err into a Status, mapping any other error to a generic
// delegate-rejection status so callers always have a {code, message} to
// serialise into a response envelope.
func AsStatus(err error) Status {
	if err == nil {
		return Status{Code: CodeOK}
	}

	if s, ok := err.(Status); ok {
		return s
	}

	return Status{Code: CodeDelegateRejected, Message: err.Error()}
}
