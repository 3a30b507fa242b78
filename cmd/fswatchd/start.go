package main

import (
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fshashd/fswatchd/internal/cmdutil"
	"github.com/fshashd/fswatchd/internal/daemonapp"
	"github.com/fshashd/fswatchd/internal/daemonlock"
	"github.com/fshashd/fswatchd/internal/ipcserver"
	"github.com/fshashd/fswatchd/internal/logging"
	"github.com/fshashd/fswatchd/internal/paths"
	"github.com/fshashd/fswatchd/internal/session"
)

func startMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 0 {
		return errors.New("unexpected arguments provided")
	}

	socketPath := startConfiguration.socketPath
	if socketPath == "" {
		var err error
		socketPath, err = paths.DefaultEndpoint()
		if err != nil {
			return errors.Wrap(err, "unable to compute default IPC endpoint")
		}
	}

	logger := logging.RootLogger

	// Acquire the daemon lock and defer its release. Only one daemon may
	// run per user at a time.
	lock, err := daemonlock.Acquire(logger)
	if err != nil {
		return errors.Wrap(err, "unable to acquire daemon lock")
	}
	defer lock.Release()

	listener, err := ipcserver.Listen(socketPath)
	if err != nil {
		return errors.Wrap(err, "unable to create daemon listener")
	}
	defer listener.Close()

	app := daemonapp.New(logger)
	app.Run()
	defer app.Shutdown()

	server := ipcserver.New(listener, app.Hub(), func() session.Backend { return app }, logger)
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Serve()
	}()
	defer server.Close()

	signalTermination := make(chan os.Signal, 1)
	signal.Notify(signalTermination, cmdutil.TerminationSignals...)

	select {
	case sig := <-signalTermination:
		logger.Printf("terminating on signal: %s", sig)
		return nil
	case err := <-serverErrors:
		return errors.Wrap(err, "premature server termination")
	}
}

var startCommand = &cobra.Command{
	Use:   "start",
	Short: "Starts the fswatchd daemon",
	Run:   cmdutil.Mainify(startMain),
}

var startConfiguration struct {
	// help indicates whether to show help information and exit.
	help bool
	// socketPath overrides the default IPC endpoint path.
	socketPath string
}

func init() {
	flags := startCommand.Flags()
	flags.BoolVarP(&startConfiguration.help, "help", "h", false, "Show help information")
	flags.StringVar(&startConfiguration.socketPath, "socket-path", "", "Override the default IPC endpoint path")
}
