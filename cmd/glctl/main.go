// Command glctl administers the general ledger directly against its database:
// seeding the chart of accounts, posting and reversing transactions, closing
// periods and printing reports.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
