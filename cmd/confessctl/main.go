// Command confessctl is the operator and terminal client for Secret Heart:
// schema migrations, seeding, and a text-mode confession wall.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
