// Command shelf is a command-line client for a shelfkeeper server.
//
// Usage:
//
//	shelf login --email me@example.com
//	shelf add-series "Berserk" --creator "Kentaro Miura" --tag seinen
//	shelf add-volume "Berserk Vol. 1" --series col-... --number 1
//	shelf list --view items --progress unread
//	shelf assign col-... --all-unassigned
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
