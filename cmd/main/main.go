package main

import (
	"context"
	"errors"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error(err)
		}
		os.Exit(1)
	}
}
