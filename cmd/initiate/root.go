package initiate

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
	initiateCmdConfig = &common.InitiatorConfig{}
	codec             payload.IPayloadCodec
	InitiateCmd       = &cobra.Command{
		Use:   "initiate",
		Short: "Connect to a responder and send requests",
		Long: `Connect a pair socket to the endpoint, send the request payload and wait for a reply of the expected size.
The responder must already be bound, connecting is not retried. The format of the environment variables is DPAIR_<flag> (e.g. DPAIR_REQUEST=WHY)`,
		PreRunE:      processConfig,
		RunE:         run,
		SilenceUsage: true,
	}
)

func init() {
	cmdUtil.SetupExchangeFlags(InitiateCmd)
	cmdUtil.SetupSocketFlags(InitiateCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the initiator configuration
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

	initiateCmdConfig.Endpoint = viper.GetString("endpoint")
	initiateCmdConfig.Request = request
	initiateCmdConfig.ReplySize = cmdUtil.GetSize("reply-size", reply)
	initiateCmdConfig.Count = viper.GetInt("count")
	initiateCmdConfig.Encoding = codec.Name()
	initiateCmdConfig.Socket = cmdUtil.GetSocketConfig()
	initiateCmdConfig.LogLevel = viper.GetString("log-level")

	if initiateCmdConfig.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", initiateCmdConfig.Count)
	}

	cmdUtil.Logger.Debugf("Configuration:\n%s", initiateCmdConfig)
	return nil
}

// run connects the initiator and sends --count requests
func run(_ *cobra.Command, _ []string) error {
	defer cmdUtil.PrintMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := exchange.NewInitiator(*initiateCmdConfig).Run(ctx)
	for _, reply := range res.Received {
		fmt.Printf("initiator: I sent: '%s'\n", codec.Encode(initiateCmdConfig.Request))
		fmt.Printf("initiator: I received: '%s'\n", codec.Encode(reply))
	}
	return err
}
