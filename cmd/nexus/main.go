package main

import (
	"errors"
	"os"

	"github.com/nexus-agents/nexus/cmd"
	"github.com/nexus-agents/nexus/internal/domain"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			// The event was buffered offline, not lost.
			os.Exit(2)
		}
		os.Exit(1)
	}
}
