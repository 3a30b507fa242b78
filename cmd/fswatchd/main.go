// Command fswatchd runs the file-set hashing and change-notification
// daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fshashd/fswatchd/internal/cmdutil"
	"github.com/fshashd/fswatchd/internal/identity"
)

func rootMain(command *cobra.Command, arguments []string) error {
	if rootConfiguration.version {
		fmt.Println(identity.Version)
		return nil
	}
	return command.Help()
}

var rootCommand = &cobra.Command{
	Use:          identity.Name,
	Short:        "fswatchd hashes file sets and notifies subscribers of changes",
	Run:          cmdutil.Mainify(rootMain),
	SilenceUsage: true,
}

var rootConfiguration struct {
	help    bool
	version bool
}

func init() {
	rootCommand.AddCommand(startCommand)

	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVarP(&rootConfiguration.version, "version", "v", false, "Show version information")
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
