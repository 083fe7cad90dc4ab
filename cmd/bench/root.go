package bench

import (
	"context"
	"fmt"
	cmdUtil "github.com/ValentinKolb/dPair/cmd/util"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/exchange"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	benchCmdConfig = &common.BenchConfig{}
	BenchCmd       = &cobra.Command{
		Use:   "bench",
		Short: "Measure the exchange latency",
		Long: `Run a responder and an initiator in the same process and measure the latency of request/reply exchanges.
Without --endpoint an inproc address is used, pass e.g. tcp://127.0.0.1:0 to measure a real transport.`,
		PreRunE:      processConfig,
		RunE:         run,
		SilenceUsage: true,
	}
)

func init() {
	key := "endpoint"
	BenchCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address to run the benchmark on (default: a fresh inproc address)"))

	key = "rounds"
	BenchCmd.PersistentFlags().Int(key, 10000, cmdUtil.WrapString("Number of request/reply exchanges"))

	key = "payload-size"
	BenchCmd.PersistentFlags().Int(key, 3, cmdUtil.WrapString("Size of request and reply in bytes"))

	cmdUtil.SetupSocketFlags(BenchCmd)
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := cmdUtil.InitLogging(); err != nil {
		return err
	}

	benchCmdConfig.Endpoint = viper.GetString("endpoint")
	benchCmdConfig.Rounds = viper.GetInt("rounds")
	benchCmdConfig.PayloadSize = viper.GetInt("payload-size")
	benchCmdConfig.Socket = cmdUtil.GetSocketConfig()
	benchCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	defer cmdUtil.PrintMetrics()

	fmt.Println("Latency benchmark for pair sockets")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(benchCmdConfig.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := exchange.RunBench(ctx, *benchCmdConfig)
	if err != nil {
		return err
	}
	res.Print(os.Stdout)
	return nil
}
