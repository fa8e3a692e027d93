package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/common"

	"github.com/and161185/wave-portal/internal/contract"
	"github.com/and161185/wave-portal/internal/model"
	"github.com/and161185/wave-portal/internal/wallet"
)

// promptApprover is the local wallet's confirmation UI. While the full-screen app runs it
// borrows the terminal from the program for the duration of a prompt.
type promptApprover struct {
	mu      sync.Mutex
	program *tea.Program
}

func newPromptApprover() *promptApprover { return &promptApprover{} }

func (a *promptApprover) attach(p *tea.Program) {
	a.mu.Lock()
	a.program = p
	a.mu.Unlock()
}

func (a *promptApprover) ApproveConnection(ctx context.Context, account common.Address, site string) (bool, error) {
	return a.confirm(ctx, "Connect wallet?", describeConnection(account, site))
}

func (a *promptApprover) ApproveTransaction(ctx context.Context, req wallet.TxRequest) (bool, error) {
	return a.confirm(ctx, "Send transaction?", describeTx(req))
}

func (a *promptApprover) confirm(ctx context.Context, title, desc string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.program != nil {
		if err := a.program.ReleaseTerminal(); err != nil {
			return false, err
		}
		defer func() { _ = a.program.RestoreTerminal() }()
	}

	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(desc).
			Affirmative("Approve").
			Negative("Reject").
			Value(&ok),
	)).WithTheme(huh.ThemeCatppuccin()).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// autoApprover approves everything; selected with -yes for scripted use.
type autoApprover struct{}

func (autoApprover) ApproveConnection(context.Context, common.Address, string) (bool, error) {
	return true, nil
}

func (autoApprover) ApproveTransaction(context.Context, wallet.TxRequest) (bool, error) {
	return true, nil
}

func describeConnection(account common.Address, site string) string {
	return fmt.Sprintf("Account %s\nSite    %s", account.Hex(), site)
}

func describeTx(req wallet.TxRequest) string {
	desc := fmt.Sprintf("From %s\nTo   %s\nGas  %d", model.AccountFromAddress(req.From).Short(), req.To.Hex(), req.Gas)
	if msg, ok := contract.DecodeWaveCall(req.Data); ok {
		return desc + fmt.Sprintf("\nWave %q", msg)
	}
	return desc + fmt.Sprintf("\nData %d bytes", len(req.Data))
}
