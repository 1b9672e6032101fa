// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// MessageError describes an issue encountered while encoding or decoding
// a wire primitive such as a transaction, block header, or AuxPoW payload.
type MessageError struct {
	Func        string
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return e.Func + ": " + e.Description
	}
	return e.Description
}

func messageError(f, desc string) *MessageError {
	return &MessageError{Func: f, Description: desc}
}
