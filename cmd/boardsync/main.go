// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Command boardsync runs one reconciliation cycle between scraped source
// snapshots and a remote board. It is designed to be invoked from cron:
// one invocation, one cycle, then exit. Exit code 0 means the cycle
// completed (even with partial record failures); non-zero means a fatal
// abort before or during snapshot fetch.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
