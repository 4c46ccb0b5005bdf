// The nsm-server command creates one simulated NSM session and serves it
// over HTTP until interrupted.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nitrosim/nsm-simulator/api/nsmhandler"
	"github.com/nitrosim/nsm-simulator/client"
	"github.com/nitrosim/nsm-simulator/cmd/flags"
	"github.com/nitrosim/nsm-simulator/httpserver"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "nsm-server",
		Usage: "Serve a simulated Nitro Secure Module session over HTTP",
		Flags: append([]cli.Flag{flags.ListenAddrFlag}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String(flags.ListenAddrFlag.Name)

			logger := flags.SetupLogger(cCtx)

			nsmClient, err := client.NewWithSession()
			if err != nil {
				logger.Error("Failed to create NSM session", "err", err)
				return err
			}

			moduleID, err := nsmClient.ModuleID()
			if err != nil {
				logger.Error("Failed to read module id", "err", err)
				return err
			}
			logger.Info("NSM session created", "moduleID", moduleID)

			server, err := httpserver.New(
				flags.ConfigureServer(cCtx, logger, listenAddr),
				nsmhandler.NewHandler(nsmClient, logger),
			)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			// Shutdown server gracefully, then release the session.
			server.Shutdown()
			if err := nsmClient.Close(); err != nil {
				logger.Error("Failed to close NSM session", "err", err)
			}
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
