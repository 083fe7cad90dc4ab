package respond

import (
	"context"
	"fmt"
	cmdUtil "github.com/ValentinKolb/dPair/cmd/util"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/ValentinKolb/dPair/sp/exchange"
	"github.com/ValentinKolb/dPair/sp/payload"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	respondCmdConfig = &common.ResponderConfig{}
	codec            payload.IPayloadCodec
	RespondCmd       = &cobra.Command{
		Use:   "respond",
		Short: "Bind a pair socket and answer requests",
		Long: `Bind a pair socket to the endpoint, wait for a request of the expected size and answer it with the reply payload.
After --count exchanges the socket is closed. The configuration can be set via command line flags or environment variables. The format of the environment variables is DPAIR_<flag> (e.g. DPAIR_ENDPOINT=tcp://127.0.0.1:5555)`,
		PreRunE:      processConfig,
		RunE:         run,
		SilenceUsage: true,
	}
)

func init() {
	cmdUtil.SetupExchangeFlags(RespondCmd)
	cmdUtil.SetupSocketFlags(RespondCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the responder configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := cmdUtil.InitLogging(); err != nil {
		return err
	}

	var err error
	if codec, err = cmdUtil.GetCodec(); err != nil {
		return err
	}

	request, err := cmdUtil.GetPayload(codec, "request", common.DefaultRequest)
	if err != nil {
		return err
	}
	reply, err := cmdUtil.GetPayload(codec, "reply", common.DefaultReply)
	if err != nil {
		return err
	}

	respondCmdConfig.Endpoint = viper.GetString("endpoint")
	respondCmdConfig.Reply = reply
	respondCmdConfig.RequestSize = cmdUtil.GetSize("request-size", request)
	respondCmdConfig.Count = viper.GetInt("count")
	respondCmdConfig.Encoding = codec.Name()
	respondCmdConfig.Socket = cmdUtil.GetSocketConfig()
	respondCmdConfig.LogLevel = viper.GetString("log-level")

	if respondCmdConfig.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", respondCmdConfig.Count)
	}

	cmdUtil.Logger.Debugf("Configuration:\n%s", respondCmdConfig)
	return nil
}

// run binds the responder and answers requests until --count exchanges are done
func run(_ *cobra.Command, _ []string) error {
	defer cmdUtil.PrintMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := exchange.NewResponder(*respondCmdConfig).Run(ctx)
	for _, request := range res.Received {
		fmt.Printf("responder: I received: '%s'\n", codec.Encode(request))
		fmt.Printf("responder: I sent: '%s'\n", codec.Encode(respondCmdConfig.Reply))
	}
	return err
}
