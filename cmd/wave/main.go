// Command wave connects a wallet to the WavePortal contract, sends waves and follows new ones.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/color"

	"github.com/and161185/wave-portal/internal/config"
	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/wallet"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `wave CLI
Usage:
  wave [-rpc URL] [-wallet-rpc URL] [-keyfile file] [-contract addr] [-log-file file] [-yes] <cmd> [args]

Commands:
  ui                                  interactive single-screen app (default)
  status                              provider, account and wave count
  connect                             ask the wallet to authorize this client
  disconnect                          revoke the local wallet's authorization
  list       [-n N]                   all waves, oldest first
  wave       -m <message>             send a wave and wait until it is mined
  watch                               print new waves as they arrive
  keygen     [-out file] [-force]     create a sealed local wallet key
  version

Environment: WAVE_RPC_URL WAVE_WALLET_RPC_URL WAVE_KEYFILE WAVE_KEY_PASSPHRASE WAVE_CONTRACT WAVE_LOG_FILE
`)
	os.Exit(2)
}

// main dispatches subcommands. Flags override the environment.
func main() {
	cfg, err := config.NewClient()
	if err != nil {
		fail(err)
	}
	flag.StringVar(&cfg.RPCURL, "rpc", cfg.RPCURL, "chain node URL (ws:// for live events)")
	flag.StringVar(&cfg.WalletRPCURL, "wallet-rpc", cfg.WalletRPCURL, "external wallet JSON-RPC URL")
	flag.StringVar(&cfg.KeyFile, "keyfile", cfg.KeyFile, "sealed local wallet key")
	flag.StringVar(&cfg.Contract, "contract", cfg.Contract, "WavePortal contract address")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log destination (ui defaults to the config dir)")
	yes := flag.Bool("yes", false, "approve local wallet prompts without asking")
	flag.Usage = usage
	flag.Parse()

	if err := config.Validate(cfg); err != nil {
		fail(err)
	}
	if cfg.KeyFile == "" {
		cfg.KeyFile = config.DefaultKeyFile()
	}

	cmd := "ui"
	args := []string{}
	if flag.NArg() > 0 {
		cmd, args = flag.Arg(0), flag.Args()[1:]
	}

	// Shutdown is the only cancellation for long-running commands.
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(sigCtx, 30*time.Second)
	defer cancel()

	var approver wallet.Approver = newPromptApprover()
	if *yes {
		approver = autoApprover{}
	}

	switch cmd {
	case "version":
		fmt.Printf("wave %s (%s)\n", version, buildDate)
		return
	case "keygen":
		err = cmdKeygen(args, cfg)
	case "ui":
		err = cmdUI(sigCtx, cfg, approver)
	case "status":
		err = cmdStatus(ctx, cfg, approver)
	case "connect":
		err = cmdConnect(ctx, cfg, approver)
	case "disconnect":
		err = cmdDisconnect(ctx, cfg, approver)
	case "list":
		err = cmdList(ctx, args, cfg, approver)
	case "wave":
		err = cmdWave(sigCtx, args, cfg, approver)
	case "watch":
		err = cmdWatch(sigCtx, cfg, approver)
	default:
		usage()
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	switch {
	case errors.Is(err, errs.ErrNoProvider):
		color.Warn.Println("No wallet available. Set -wallet-rpc or create a key with `wave keygen`.")
	case errors.Is(err, errs.ErrUserRejected), errors.Is(err, errs.ErrTransactionRejected):
		color.Warn.Println("Rejected:", err)
	default:
		color.Error.Println(err)
	}
	os.Exit(1)
}
