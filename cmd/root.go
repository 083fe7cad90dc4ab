package cmd

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPair/cmd/bench"
	"github.com/ValentinKolb/dPair/cmd/initiate"
	"github.com/ValentinKolb/dPair/cmd/respond"
	"github.com/ValentinKolb/dPair/cmd/util"
	"github.com/ValentinKolb/dPair/sp/exchange"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

const (
	// ExitTransportError is the exit code for transport and configuration errors
	ExitTransportError = 1
	// ExitLengthMismatch is the exit code if a message had an unexpected length
	ExitLengthMismatch = 2
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dpair",
		Short: "request/reply over pair sockets",
		Long: fmt.Sprintf(`dPair (v%s)

A responder and an initiator exchanging messages over a pair socket,
wire compatible with nanomsg NN_PAIR sockets (tcp, ipc, inproc).`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dPair",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dPair v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(respond.RespondCmd)
	RootCmd.AddCommand(initiate.InitiateCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)
}

// ExitCode maps the error of a command to the exit code of the process
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, exchange.ErrLengthMismatch):
		return ExitLengthMismatch
	default:
		return ExitTransportError
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(ExitCode(err))
	}
}
