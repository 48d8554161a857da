// Package main is the entry point for the movira application.
package main

import (
	"github.com/movira-cli/movira/cmd"
	"github.com/movira-cli/movira/config"
	"github.com/movira-cli/movira/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
