package main

import (
	"os"

	"github.com/CloudNativeWorks/lynx-node/cmd"
	"github.com/CloudNativeWorks/lynx-node/pkg/helper"
	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
)

var version = "1.0.0"

func main() {
	defer helper.RecoverPanic(logger.NewLogger("main"), "main", 2)

	if err := cmd.Execute(version); err != nil {
		logger.Fatalf("Error: %v", err)
		os.Exit(1)
	}
}
