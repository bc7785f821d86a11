package flows

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/money"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

const (
	keyAddress = "address"
	keyAmount  = "amount"
)

// Wallet shows balance, trading stats and account binding.
func (f *Flows) Wallet(ctx context.Context, in Input) (Result, error) {
	u := in.User
	if err := f.api.CreateWalletIfNotExists(ctx, u.ID); err != nil {
		return Result{}, fmt.Errorf("wallet: %w", err)
	}
	stat, err := f.api.UserStat(ctx, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("wallet: stat: %w", err)
	}
	wallet, err := f.api.GetWallet(ctx, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("wallet: %w", err)
	}
	bound, err := f.api.IsWebBound(ctx, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("wallet: bind status: %w", err)
	}
	return reply(f.view(u).Wallet(composer.WalletSummary{
		User:   *u,
		Wallet: *wallet,
		Stat:   *stat,
		Bound:  bound,
	})), nil
}

func (f *Flows) Deposit(ctx context.Context, in Input) (Result, error) {
	wallet, err := f.api.GetWallet(ctx, in.User.ID)
	if err != nil {
		return Result{}, fmt.Errorf("deposit: %w", err)
	}
	settings, err := f.api.Settings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("deposit: settings: %w", err)
	}
	return reply(f.view(in.User).Deposit(*wallet, settings.MinTxAmount)...), nil
}

// DepositRub sends a QR code for a rouble top-up. Any failure is reported as the service being unavailable.
func (f *Flows) DepositRub(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	encoded, err := f.api.DepositRub(ctx, in.User.ID)
	if err != nil {
		f.log.Warn("rub deposit unavailable", slog.Int64("user_id", in.User.ID), slog.Any("error", err))
		return reply(v.Menu("service_unavailable_message", nil)), nil
	}
	_, data, _ := strings.Cut(encoded, ",")
	if data == "" {
		data = encoded
	}
	qr, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		f.log.Warn("rub deposit qr is not base64", slog.Int64("user_id", in.User.ID), slog.Any("error", err))
		return reply(v.Menu("service_unavailable_message", nil)), nil
	}
	return reply(v.DepositRub(qr)...), nil
}

// Withdraw starts the withdrawal wizard when the balance covers the minimum.
func (f *Flows) Withdraw(ctx context.Context, in Input) (Result, error) {
	settings, err := f.api.Settings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("withdraw: settings: %w", err)
	}
	wallet, err := f.api.GetWallet(ctx, in.User.ID)
	if err != nil {
		return Result{}, fmt.Errorf("withdraw: %w", err)
	}
	v := f.view(in.User)
	if wallet.Balance.LessThan(settings.MinTxAmount) {
		return reply(v.NotEnoughFunds(settings.MinTxAmount, wallet.Balance)), nil
	}
	return advance(state.StateChooseAddressWithdraw, nil, v.Withdraw(wallet.LastAddress)), nil
}

func (f *Flows) WithdrawAddress(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	address := strings.TrimSpace(in.Text)
	valid, err := f.api.ValidateAddress(ctx, address)
	if err != nil {
		return Result{}, fmt.Errorf("withdraw: validate address: %w", err)
	}
	if !valid {
		return reply(v.Prompt("wrong_address", nil)), nil
	}

	wallet, err := f.api.GetWallet(ctx, in.User.ID)
	if err != nil {
		return Result{}, fmt.Errorf("withdraw: %w", err)
	}
	settings, err := f.api.Settings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("withdraw: settings: %w", err)
	}
	commission, err := f.api.WithdrawCommission(ctx, wallet.Balance)
	if err != nil {
		return Result{}, fmt.Errorf("withdraw: commission: %w", err)
	}
	return advance(state.StateChooseAmountWithdraw,
		in.State.Data(map[string]interface{}{keyAddress: address}),
		v.WithdrawAmount(address, wallet.Balance, settings.MinTxAmount, *commission)), nil
}

// checkWithdrawAmount parses text and verifies it against the wallet. ok is false when the
// amount must be rejected with "wrong sum".
func (f *Flows) checkWithdrawAmount(ctx context.Context, userID int64, text string, withLimit bool) (decimal.Decimal, bool, error) {
	amount, err := money.ParseAmount(text)
	if err != nil || !money.FitsPrecision(amount, f.opts.Decimals) {
		return decimal.Zero, false, nil
	}
	wallet, err := f.api.GetWallet(ctx, userID)
	if err != nil {
		return decimal.Zero, false, err
	}
	if withLimit && wallet.WithdrawalLimit.IsPositive() && amount.GreaterThan(wallet.WithdrawalLimit) {
		return decimal.Zero, false, nil
	}
	settings, err := f.api.Settings(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	if amount.GreaterThan(wallet.Balance) || amount.LessThan(settings.MinTxAmount) {
		return decimal.Zero, false, nil
	}
	return amount, true, nil
}

func (f *Flows) WithdrawAmount(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	amount, ok, err := f.checkWithdrawAmount(ctx, in.User.ID, in.Text, true)
	if err != nil {
		return Result{}, fmt.Errorf("withdraw: amount: %w", err)
	}
	if !ok {
		return reply(v.Prompt("wrong_sum", nil)), nil
	}
	address := in.State.String(keyAddress)
	return advance(state.StateConfirmationWithdraw,
		in.State.Data(map[string]interface{}{keyAmount: amount.String()}),
		v.WithdrawalConfirmation(amount, address)), nil
}

// WithdrawConfirm sends the transaction once the user says yes.
func (f *Flows) WithdrawConfirm(ctx context.Context, in Input) (Result, error) {
	return f.confirm(ctx, in, f.sendWithdrawal)
}

func (f *Flows) sendWithdrawal(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	address := in.State.String(keyAddress)

	if !f.opts.TestMode && !f.guard.WithdrawalAllowed(address) {
		f.log.Info("withdrawal rejected by cooldown", slog.Int64("user_id", in.User.ID))
		return reset(v.Menu("error", nil)), nil
	}

	amount, ok, err := f.checkWithdrawAmount(ctx, in.User.ID, in.State.String(keyAmount), false)
	if err != nil {
		return Result{}, fmt.Errorf("withdraw: confirm: %w", err)
	}
	if !ok {
		return reset(v.Menu("wrong_sum", nil)), nil
	}

	f.guard.RecordWithdrawal(address)
	err = f.api.SendTransaction(ctx, api.SendTransactionRequest{
		UserID:  in.User.ID,
		Amount:  amount,
		Address: address,
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "conflict") {
			return reset(v.Menu("withdrawal_limit_reached", nil)), nil
		}
		f.log.Error("send transaction failed", slog.Int64("user_id", in.User.ID), slog.Any("error", err))
		return reset(v.Error(false)), nil
	}
	return reset(v.TransactionInQueue()), nil
}

// Reports sends every report of the user as a CSV document.
func (f *Flows) Reports(ctx context.Context, in Input) (Result, error) {
	reports, err := f.api.Reports(ctx, in.User.ID)
	if err != nil {
		return Result{}, fmt.Errorf("reports: %w", err)
	}
	files, err := composer.AllReports(reports)
	if err != nil {
		return Result{}, err
	}
	replies := make([]composer.Response, len(files))
	for i, file := range files {
		replies[i] = composer.Response{Attachment: file}
	}
	return reply(replies...), nil
}
