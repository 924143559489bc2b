package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetLevel(log.InfoLevel)
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cozyfs:", err)
		os.Exit(1)
	}
}
