// Command pipeline fetches daily prices, derives rolling features, persists them
// and prints the latest volatility summary. It also serves the same operations over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
