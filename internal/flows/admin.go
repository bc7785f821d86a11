package flows

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/money"
)

// Balance commands: /addb, /addbm and /addf adjust, /balance and /frozen overwrite.
const (
	BalanceAdd          = "b"
	BalanceAddOperation = "bm"
	FrozenAdd           = "f"
	BalanceSet          = "balance"
	FrozenSet           = "frozen"
)

// reportPrefixes maps monthly report types to their /r<prefix>_<year>_<month> command.
var reportPrefixes = map[string]string{
	"deals":        "rd",
	"promocodes":   "rp",
	"lots":         "rl",
	"exchange":     "re",
	"users":        "ru",
	"transactions": "rt",
	"income":       "rf",
	"merchants":    "rm",
}

// adminReportKinds maps admin menu buttons to report types.
var adminReportKinds = map[string]string{
	"users":        "users",
	"lots":         "lots",
	"deals":        "deals",
	"promocodes":   "promocodes",
	"transactions": "transactions",
	"financial":    "income",
	"exchange":     "exchange",
	"merchant":     "merchants",
}

// ReportType resolves a command prefix such as "rd" to its report type.
func ReportType(prefix string) (string, bool) {
	for t, p := range reportPrefixes {
		if p == prefix {
			return t, true
		}
	}
	return "", false
}

var supportLookups = map[string]func(API, context.Context, string) (map[string]any, error){
	composer.InfoPayment:    API.PaymentInfo,
	composer.InfoPaymentV2:  API.PaymentV2Info,
	composer.InfoSale:       API.SaleInfo,
	composer.InfoSaleV2:     API.SaleV2Info,
	composer.InfoCPayment:   API.CPaymentInfo,
	composer.InfoWithdrawal: API.WithdrawalInfo,
}

// admin wraps h so that everyone else gets the unknown command answer.
func (f *Flows) admin(h Handler) Handler {
	return func(ctx context.Context, in Input) (Result, error) {
		if in.User == nil || !in.User.IsAdmin {
			return f.UnknownCommand(ctx, in)
		}
		return h(ctx, in)
	}
}

func (f *Flows) support(h Handler) Handler {
	return func(ctx context.Context, in Input) (Result, error) {
		if !f.isSupport(in.User) {
			return f.UnknownCommand(ctx, in)
		}
		return h(ctx, in)
	}
}

func (f *Flows) text(s string) Result {
	return reply(f.comp.Raw(s, nil))
}

func signedAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(money.Normalize(s))
}

// AdminMenu lists the report buttons.
func (f *Flows) AdminMenu(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(_ context.Context, in Input) (Result, error) {
		return reply(f.view(in.User).AdminMenu()), nil
	})(ctx, in)
}

// ChangeBalance handles /addb, /addbm and /addf: args are the command, a nickname and a
// signed amount.
func (f *Flows) ChangeBalance(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		cmd, nickname := in.Arg(0), in.Arg(1)
		amount, err := signedAmount(in.Arg(2))
		if err != nil {
			return reply(f.view(in.User).Error(false)), nil
		}
		target, err := f.api.GetUserInfo(ctx, nickname)
		if err != nil {
			return Result{}, fmt.Errorf("change balance: %w", err)
		}

		switch cmd {
		case BalanceAdd, BalanceAddOperation:
			err = f.api.ChangeBalance(ctx, target.ID, in.User.ID, amount, cmd == BalanceAddOperation)
		case FrozenAdd:
			err = f.api.ChangeFrozen(ctx, target.ID, in.User.ID, amount)
		default:
			return f.UnknownCommand(ctx, in)
		}
		if err != nil {
			return Result{}, fmt.Errorf("change balance %s: %w", cmd, err)
		}
		f.log.Info("admin balance change",
			slog.Int64("admin_id", in.User.ID), slog.Int64("user_id", target.ID),
			slog.String("command", cmd), slog.String("amount", amount.String()))

		if cmd != FrozenAdd && amount.IsPositive() {
			f.notify(ctx, target.TelegramID, f.comp.For(target.Lang).NewIncomeFromAdmin(amount))
		}
		wallet, err := f.api.GetWallet(ctx, target.ID)
		if err != nil {
			return Result{}, fmt.Errorf("change balance: wallet: %w", err)
		}
		if cmd == FrozenAdd {
			return f.text(f.comp.NewFrozen(nickname, wallet.Frozen)), nil
		}
		return f.text(f.comp.NewBalance(nickname, wallet.Balance, true)), nil
	})(ctx, in)
}

// SetBalance handles /balance and /frozen which overwrite the stored value.
func (f *Flows) SetBalance(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		cmd, nickname := in.Arg(0), in.Arg(1)
		amount, err := signedAmount(in.Arg(2))
		if err != nil {
			return reply(f.view(in.User).Error(false)), nil
		}
		target, err := f.api.GetUserInfo(ctx, nickname)
		if err != nil {
			return Result{}, fmt.Errorf("set balance: %w", err)
		}
		switch cmd {
		case BalanceSet:
			err = f.api.SetBalance(ctx, target.ID, in.User.ID, amount)
		case FrozenSet:
			err = f.api.SetFrozen(ctx, target.ID, in.User.ID, amount)
		default:
			return f.UnknownCommand(ctx, in)
		}
		if err != nil {
			return Result{}, fmt.Errorf("set %s: %w", cmd, err)
		}
		wallet, err := f.api.GetWallet(ctx, target.ID)
		if err != nil {
			return Result{}, fmt.Errorf("set balance: wallet: %w", err)
		}
		if cmd == FrozenSet {
			return f.text(f.comp.NewFrozen(nickname, wallet.Frozen)), nil
		}
		return f.text(f.comp.NewBalance(nickname, wallet.Balance, false)), nil
	})(ctx, in)
}

// SendFromNode handles /sndtx <address> <amount>.
func (f *Flows) SendFromNode(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		amount, err := money.ParseAmount(in.Arg(1))
		if err != nil {
			return reply(f.view(in.User).Error(false)), nil
		}
		link, err := f.api.WithdrawFromPaymentsNode(ctx, in.User.ID, in.Arg(0), amount)
		if err != nil {
			return Result{}, fmt.Errorf("send from node: %w", err)
		}
		return f.text(link), nil
	})(ctx, in)
}

func (f *Flows) NodeTransaction(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		tx, err := f.api.NodeTransaction(ctx, in.Arg(0))
		if err != nil {
			return Result{}, fmt.Errorf("node transaction: %w", err)
		}
		return f.text(f.comp.NodeTransaction(tx)), nil
	})(ctx, in)
}

func (f *Flows) NewCampaign(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		c, err := f.api.CreateCampaign(ctx, in.User.ID, in.Arg(0))
		if err != nil {
			return Result{}, fmt.Errorf("new campaign: %w", err)
		}
		return f.text(f.comp.Campaign(c)), nil
	})(ctx, in)
}

func (f *Flows) Profit(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, _ Input) (Result, error) {
		p, err := f.api.Profit(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("profit: %w", err)
		}
		return f.text(f.comp.Profit(p)), nil
	})(ctx, in)
}

func (f *Flows) ResetImbalance(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		if err := f.api.ResetImbalance(ctx, in.User.ID); err != nil {
			return Result{}, fmt.Errorf("reset imbalance: %w", err)
		}
		return reply(f.view(in.User).Done()), nil
	})(ctx, in)
}

func (f *Flows) FrozenList(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, _ Input) (Result, error) {
		entries, err := f.api.FrozenAll(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("frozen: %w", err)
		}
		return f.text(f.comp.Frozen(entries)), nil
	})(ctx, in)
}

func (f *Flows) ToggleWithdrawals(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, _ Input) (Result, error) {
		enabled, err := f.api.ToggleWithdrawals(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("toggle withdrawals: %w", err)
		}
		return f.text(f.comp.WithdrawalsToggled(enabled)), nil
	})(ctx, in)
}

func (f *Flows) ToggleFastDeals(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, _ Input) (Result, error) {
		enabled, err := f.api.ToggleFastDeals(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("toggle fast deals: %w", err)
		}
		return f.text(f.comp.FastDealsToggled(enabled)), nil
	})(ctx, in)
}

func (f *Flows) FinReport(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, _ Input) (Result, error) {
		r, err := f.api.FinReport(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("finreport: %w", err)
		}
		usd, err := f.api.Rate(ctx, "usd")
		if err != nil {
			return Result{}, fmt.Errorf("finreport: rate: %w", err)
		}
		return f.text(f.comp.FinReport(r, usd)), nil
	})(ctx, in)
}

// MessagesBanAll blocks (first arg "1") or unblocks every incoming message of a Telegram ID.
func (f *Flows) MessagesBanAll(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		banned := in.Arg(0) == "1"
		tg, err := strconv.ParseInt(in.Arg(1), 10, 64)
		if err != nil {
			return reply(f.view(in.User).Error(false)), nil
		}
		if err := f.guard.SetMessagesBan(ctx, tg, banned); err != nil {
			return Result{}, fmt.Errorf("messages ban: %w", err)
		}
		return f.text(f.comp.MessagesBanned(banned)), nil
	})(ctx, in)
}

// SupportLookup prints a merchant payment, sale or withdrawal: args are the kind and the UUID.
func (f *Flows) SupportLookup(ctx context.Context, in Input) (Result, error) {
	return f.support(func(ctx context.Context, in Input) (Result, error) {
		kind := in.Arg(0)
		lookup, ok := supportLookups[kind]
		if !ok {
			return f.UnknownCommand(ctx, in)
		}
		data, err := lookup(f.api, ctx, in.Arg(1))
		if err != nil {
			return Result{}, fmt.Errorf("support lookup %s: %w", kind, err)
		}
		return f.text(f.comp.SupportInfo(kind, data)), nil
	})(ctx, in)
}

// AdminReport answers an admin menu button: campaigns come as a file right away, every
// other report as the list of monthly commands.
func (f *Flows) AdminReport(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		button := in.Arg(0)
		if button == "campaigns" {
			return f.reportFile(ctx, "campaigns", "", "")
		}
		t, ok := adminReportKinds[button]
		if !ok {
			return reply(f.view(in.User).Error(false)), nil
		}
		return f.text(f.comp.Months(reportPrefixes[t], f.now())), nil
	})(ctx, in)
}

// MonthlyReport exports one report type for a calendar month: args are the type, year and month.
func (f *Flows) MonthlyReport(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		from, to, ok := reportPeriod(in.Arg(1), in.Arg(2), "")
		if !ok {
			return reply(f.view(in.User).Error(false)), nil
		}
		return f.reportFile(ctx, in.Arg(0), from, to)
	})(ctx, in)
}

// ControlReport exports the deal control log of one day. Support staff may run it too.
func (f *Flows) ControlReport(ctx context.Context, in Input) (Result, error) {
	return f.support(func(ctx context.Context, in Input) (Result, error) {
		from, to, ok := reportPeriod(in.Arg(0), in.Arg(1), in.Arg(2))
		if !ok {
			return reply(f.view(in.User).Error(false)), nil
		}
		return f.reportFile(ctx, "control", from, to)
	})(ctx, in)
}

func (f *Flows) reportFile(ctx context.Context, t, from, to string) (Result, error) {
	fields, ok := composer.ReportFields[t]
	if !ok {
		return Result{}, fmt.Errorf("report: unknown type %q", t)
	}
	rows, err := f.api.AllReports(ctx, t, from, to)
	if err != nil {
		return Result{}, fmt.Errorf("report %s: %w", t, err)
	}
	file, err := composer.ReportFile(t, rows, fields)
	if err != nil {
		return Result{}, err
	}
	return reply(composer.Response{Attachment: file}), nil
}

// reportPeriod turns a month, or a single day when day is set, into unix second bounds.
// Report periods are UTC.
func reportPeriod(year, month, day string) (string, string, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", "", false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", "", false
	}
	from := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	if day != "" {
		d, err := strconv.Atoi(day)
		if err != nil || d < 1 || d > 31 {
			return "", "", false
		}
		from = time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 0, 1)
	}
	last := to.Add(-time.Second)
	return strconv.FormatInt(from.Unix(), 10), strconv.FormatInt(last.Unix(), 10), true
}

// UserReport exports one report kind of a single user. Deals and transactions are split by month.
func (f *Flows) UserReport(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		kind := in.Arg(0)
		userID, err := strconv.ParseInt(in.Arg(1), 10, 64)
		if err != nil {
			return reply(f.view(in.User).Error(false)), nil
		}
		reports, err := f.api.Reports(ctx, userID)
		if err != nil {
			return Result{}, fmt.Errorf("user report: %w", err)
		}
		separated := kind == "deals" || kind == "transactions"
		files, err := composer.UserReportFiles(kind, reports[kind], separated)
		if err != nil {
			return Result{}, err
		}
		var out Result
		for _, file := range files {
			out.Replies = append(out.Replies, composer.Response{Attachment: file})
		}
		return out, nil
	})(ctx, in)
}

func (f *Flows) Transit(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		userID, err := strconv.ParseInt(in.Arg(0), 10, 64)
		if err != nil {
			return reply(f.view(in.User).Error(false)), nil
		}
		t, err := f.api.Transit(ctx, userID)
		if err != nil {
			return Result{}, fmt.Errorf("transit: %w", err)
		}
		return f.text(f.comp.Transit(t)), nil
	})(ctx, in)
}

// Broadcast sends the text after "/send_notif_all " to every known Telegram ID. Delivery runs
// in the background with a pause between messages.
func (f *Flows) Broadcast(ctx context.Context, in Input) (Result, error) {
	return f.admin(func(ctx context.Context, in Input) (Result, error) {
		text := strings.TrimSpace(strings.TrimPrefix(in.Text, "/send_notif_all"))
		if text == "" {
			return reply(f.view(in.User).Error(false)), nil
		}
		ids, err := f.api.AllTelegramIDs(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("broadcast: %w", err)
		}
		go f.broadcast(context.WithoutCancel(ctx), ids, text)
		return Result{}, nil
	})(ctx, in)
}

func (f *Flows) broadcast(ctx context.Context, ids []int64, text string) {
	msg := f.comp.Raw(text, nil)
	ticker := time.NewTicker(f.opts.BroadcastDelay)
	defer ticker.Stop()
	for _, id := range ids {
		<-ticker.C
		f.notify(ctx, id, msg)
	}
	f.log.Info("broadcast finished", slog.Int("recipients", len(ids)))
}
