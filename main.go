package main

import (
	"fmt"
	"os"

	"github.com/tphakala/chargewatch-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
