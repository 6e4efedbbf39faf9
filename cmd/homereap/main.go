package main

import (
	"github.com/integrii/flaggy"
	"go.uber.org/zap"

	"github.com/homereap/homereap/cmd/homereap/sweep"
	"github.com/homereap/homereap/internal/cli"
	"github.com/homereap/homereap/internal/logger"
)

var version = "dev"

const description = "Reclaims encrypted per-user home volumes once their owner has logged out"

func main() {
	flaggy.SetName("homereap")
	flaggy.SetDescription(description)
	flaggy.SetVersion(version)

	opts := cli.GlobalOptions{}

	cmds := []cli.Command{
		sweep.NewCommand(),
	}
	for _, cmd := range cmds {
		flaggy.AttachSubcommand(cmd.Flaggy(), 1)
	}
	flaggy.Parse()

	log := logger.NewConsole()
	defer func() {
		_ = log.Sync()
	}()

	for _, cmd := range cmds {
		if cmd.Flaggy().Used {
			if err := cmd.Run(log, &opts); err != nil {
				log.Fatal("Command failed", zap.Error(err))
			}
			return
		}
	}
	flaggy.ShowHelpAndExit("No command specified")
}
