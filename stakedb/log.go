// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stakedb

import "github.com/decred/slog"

// log is the package-level logger used by this package. It defaults to the
// disabled logger so the package has sane logging behavior even if the
// caller does not explicitly set one.
var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}
