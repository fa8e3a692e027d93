package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/and161185/wave-portal/internal/config"
	"github.com/and161185/wave-portal/internal/contract"
	"github.com/and161185/wave-portal/internal/controller"
	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/model"
	"github.com/and161185/wave-portal/internal/wallet"
)

// app is the wired client: the environment's wallet, its session and the contract address.
type app struct {
	log      *zap.Logger
	env      wallet.Environment
	session  *wallet.Session
	contract common.Address
	local    *wallet.KeyWallet
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

// gateway binds the contract to account on the environment's provider.
func (a *app) gateway(account model.Account) (*contract.Gateway, error) {
	p, ok := a.env.DetectProvider()
	if !ok {
		return nil, errs.ErrNoProvider
	}
	return contract.New(p, account, a.contract, a.log)
}

// gatewayFactory adapts gateway construction for the controller.
func (a *app) gatewayFactory() controller.GatewayFactory {
	return func(p wallet.Provider, account model.Account) (controller.Gateway, error) {
		gw, err := contract.New(p, account, a.contract, a.log)
		if err != nil {
			return nil, err
		}
		return gw, nil
	}
}

// newLogger writes to path when set, stderr otherwise.
func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{path}
	return zc.Build()
}

// setup detects the wallet: an external JSON-RPC wallet when configured, otherwise the local
// sealed key if one exists. Neither is a normal "no provider" environment.
func setup(ctx context.Context, cfg config.Client, approver wallet.Approver, log *zap.Logger) (*app, error) {
	a := &app{log: log, contract: common.HexToAddress(cfg.Contract)}

	switch {
	case cfg.WalletRPCURL != "":
		p, err := wallet.DialRPC(ctx, cfg.WalletRPCURL, cfg.RPCURL)
		if err != nil {
			log.Warn("wallet endpoint unavailable", zap.String("url", cfg.WalletRPCURL), zap.Error(err))
			break
		}
		a.closers = append(a.closers, p.Close)
		a.env = wallet.Environment{Injected: p}

	case fileExists(cfg.KeyFile):
		w, closeFn, err := openLocalWallet(ctx, cfg, approver, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeFn)
		a.local = w
		a.env = wallet.Environment{Injected: w}
	}

	a.session = wallet.NewSession(a.env, log)
	return a, nil
}

func openLocalWallet(ctx context.Context, cfg config.Client, approver wallet.Approver, log *zap.Logger) (*wallet.KeyWallet, func(), error) {
	kf, err := wallet.LoadKeyFile(cfg.KeyFile)
	if err != nil {
		return nil, nil, err
	}
	pass := cfg.KeyPassphrase
	if pass == "" {
		if pass, err = askPassphrase(ctx, "Unlock "+model.Account(kf.Address).Short(), false); err != nil {
			return nil, nil, err
		}
	}
	key, err := kf.Unlock([]byte(pass))
	if err != nil {
		return nil, nil, fmt.Errorf("unlock %s: %w", cfg.KeyFile, err)
	}
	backend, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial %s: %v", errs.ErrChainCallFailed, cfg.RPCURL, err)
	}
	w, err := wallet.NewKeyWallet(wallet.KeyWalletConfig{
		Key:      key,
		Site:     common.HexToAddress(cfg.Contract).Hex(),
		GrantDir: config.Dir(),
		Backend:  backend,
		Approver: approver,
		Log:      log,
	})
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return w, backend.Close, nil
}

func askPassphrase(ctx context.Context, title string, confirm bool) (string, error) {
	var pass, again string
	fields := []huh.Field{
		huh.NewInput().Title(title).EchoMode(huh.EchoModePassword).Value(&pass).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("passphrase required")
				}
				return nil
			}),
	}
	if confirm {
		fields = append(fields, huh.NewInput().Title("Repeat passphrase").EchoMode(huh.EchoModePassword).Value(&again).
			Validate(func(s string) error {
				if s != pass {
					return errors.New("passphrases differ")
				}
				return nil
			}))
	}
	err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCatppuccin()).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return "", errs.ErrUserRejected
	}
	return pass, err
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
