package main

import (
	"os"

	"beanhealth/internal/cli"
	"beanhealth/internal/logging"
)

func main() {
	err := cli.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
