// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package standalone

import "errors"

var (
	errNegativeOrZeroTarget    = errors.New("target difficulty is negative or zero")
	errTargetTooHigh           = errors.New("target difficulty is higher than max of pow limit")
	errHashDoesNotSatisfyTarget = errors.New("hash does not satisfy target")
)
