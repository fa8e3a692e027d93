package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/and161185/wave-portal/internal/config"
	"github.com/and161185/wave-portal/internal/controller"
	"github.com/and161185/wave-portal/internal/model"
	"github.com/and161185/wave-portal/internal/ui"
	"github.com/and161185/wave-portal/internal/wallet"
)

const timeLayout = "2006-01-02 15:04:05"

func open(ctx context.Context, cfg config.Client, approver wallet.Approver) (*app, error) {
	log, err := newLogger(cfg.LogFile)
	if err != nil {
		return nil, err
	}
	a, err := setup(ctx, cfg, approver, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return a, nil
}

// account returns the authorized account, prompting the wallet when prompt is set.
func (a *app) account(ctx context.Context, prompt bool) (model.Account, error) {
	if acc, ok := a.session.DiscoverAuthorizedAccount(ctx); ok {
		return acc, nil
	}
	if !prompt {
		return "", nil
	}
	return a.session.RequestConnection(ctx)
}

func cmdUI(ctx context.Context, cfg config.Client, approver wallet.Approver) error {
	// The log would otherwise draw over the alt screen.
	if cfg.LogFile == "" {
		if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
			return err
		}
		cfg.LogFile = filepath.Join(config.Dir(), "wave.log")
	}
	a, err := open(ctx, cfg, approver)
	if err != nil {
		return err
	}
	defer a.Close()

	feed := ui.NewFeed()
	ctrl := controller.New(controller.Config{
		Session:    a.session,
		NewGateway: a.gatewayFactory(),
		Log:        a.log,
		OnChange:   feed.Publish,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = ctrl.Run(runCtx) }()

	p := tea.NewProgram(ui.New(ctrl, feed), tea.WithAltScreen(), tea.WithContext(runCtx))
	if pa, ok := approver.(*promptApprover); ok {
		pa.attach(p)
		defer pa.attach(nil)
	}
	_, err = p.Run()
	cancel()
	<-ctrl.Done()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func cmdStatus(ctx context.Context, cfg config.Client, approver wallet.Approver) error {
	a, err := open(ctx, cfg, approver)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.env.DetectProvider(); !ok {
		color.Warn.Println("wallet:   none")
		return nil
	}
	acc, err := a.account(ctx, false)
	if err != nil {
		return err
	}
	gw, err := a.gateway(acc)
	if err != nil {
		return err
	}
	total, err := gw.TotalCount(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("contract: %s\n", gw.Address().Hex())
	if gw.Account().IsZero() {
		fmt.Println("account:  not connected")
	} else {
		fmt.Printf("account:  %s\n", gw.Account())
	}
	fmt.Printf("waves:    %d\n", total)
	return nil
}

func cmdConnect(ctx context.Context, cfg config.Client, approver wallet.Approver) error {
	a, err := open(ctx, cfg, approver)
	if err != nil {
		return err
	}
	defer a.Close()

	acc, err := a.session.RequestConnection(ctx)
	if err != nil {
		return err
	}
	color.Success.Printf("Connected %s\n", acc)
	return nil
}

func cmdDisconnect(ctx context.Context, cfg config.Client, approver wallet.Approver) error {
	a, err := open(ctx, cfg, approver)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.local == nil {
		return errors.New("disconnect: only the local wallet keeps an authorization here; revoke it in the external wallet")
	}
	if err := a.local.Disconnect(); err != nil {
		return err
	}
	color.Info.Printf("Disconnected %s\n", model.AccountFromAddress(a.local.Address()).Short())
	return nil
}

func cmdList(ctx context.Context, args []string, cfg config.Client, approver wallet.Approver) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	n := fs.Int("n", 0, "show only the last N waves")
	_ = fs.Parse(args)

	a, err := open(ctx, cfg, approver)
	if err != nil {
		return err
	}
	defer a.Close()

	acc, err := a.account(ctx, false)
	if err != nil {
		return err
	}
	gw, err := a.gateway(acc)
	if err != nil {
		return err
	}
	entries, err := gw.History(ctx)
	if err != nil {
		return err
	}
	if *n > 0 && len(entries) > *n {
		entries = entries[len(entries)-*n:]
	}
	renderTable(os.Stdout, entries)
	return nil
}

func renderTable(w io.Writer, entries []model.WaveEntry) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Time", "Author", "Message"})
	tw.SetAutoWrapText(false)
	for _, e := range entries {
		tw.Append([]string{e.SubmittedAt.Local().Format(timeLayout), string(e.Author), e.Message})
	}
	tw.Render()
}

func cmdWave(ctx context.Context, args []string, cfg config.Client, approver wallet.Approver) error {
	fs := flag.NewFlagSet("wave", flag.ExitOnError)
	msg := fs.String("m", "", "message")
	_ = fs.Parse(args)
	if *msg == "" && fs.NArg() > 0 {
		*msg = strings.Join(fs.Args(), " ")
	}

	a, err := open(ctx, cfg, approver)
	if err != nil {
		return err
	}
	defer a.Close()

	acc, err := a.account(ctx, true)
	if err != nil {
		return err
	}
	gw, err := a.gateway(acc)
	if err != nil {
		return err
	}

	if total, err := gw.TotalCount(ctx); err == nil {
		a.log.Info("total waves", zap.String("stage", "before submit"), zap.Uint64("total", total))
	}
	tx, err := gw.Submit(ctx, *msg)
	if err != nil {
		return err
	}
	fmt.Printf("sent %s, waiting to be mined...\n", tx.Hash().Hex())
	if err := tx.Wait(ctx); err != nil {
		return err
	}
	total, err := gw.TotalCount(ctx)
	if err != nil {
		return err
	}
	a.log.Info("total waves", zap.String("stage", "after confirmation"), zap.Uint64("total", total))
	color.Success.Printf("Mined. %d waves so far.\n", total)
	return nil
}

func cmdWatch(ctx context.Context, cfg config.Client, approver wallet.Approver) error {
	a, err := open(ctx, cfg, approver)
	if err != nil {
		return err
	}
	defer a.Close()

	acc, err := a.account(ctx, false)
	if err != nil {
		return err
	}
	gw, err := a.gateway(acc)
	if err != nil {
		return err
	}
	sub, err := gw.Subscribe(ctx, func(e model.WaveEntry) {
		fmt.Println(formatWave(e))
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	color.Info.Printf("Watching %s, Ctrl-C to stop\n", gw.Address().Hex())
	select {
	case <-ctx.Done():
		return nil
	case err := <-sub.Err():
		return err
	}
}

func formatWave(e model.WaveEntry) string {
	return color.Gray.Sprint(e.SubmittedAt.Local().Format(timeLayout)) + " " +
		color.Magenta.Sprint(e.Author.Short()) + " " + e.Message
}

func cmdKeygen(args []string, cfg config.Client) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("out", cfg.KeyFile, "key file to write")
	force := fs.Bool("force", false, "overwrite an existing key file")
	_ = fs.Parse(args)

	if fileExists(*out) && !*force {
		return fmt.Errorf("%s already exists, use -force to replace it", *out)
	}
	pass := cfg.KeyPassphrase
	if pass == "" {
		var err error
		if pass, err = askPassphrase(context.Background(), "New key passphrase", true); err != nil {
			return err
		}
	}
	kf, _, err := wallet.GenerateKeyFile([]byte(pass))
	if err != nil {
		return err
	}
	if err := wallet.SaveKeyFile(*out, kf); err != nil {
		return err
	}
	color.Success.Printf("Created %s\n", *out)
	fmt.Printf("address: %s\n", kf.Address)
	return nil
}
