// Package flows holds the conversational handlers of the exchange bot. Each handler turns
// one user input into replies plus an instruction for the state machine.
package flows

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

// Outcome tells the dispatcher what to do with the session after a handler ran.
type Outcome int

const (
	// Stay leaves the session untouched.
	Stay Outcome = iota
	// Advance stores Result.Next together with Result.Data.
	Advance
	// Reset clears the session.
	Reset
)

func (o Outcome) String() string {
	switch o {
	case Advance:
		return "advance"
	case Reset:
		return "reset"
	default:
		return "stay"
	}
}

// Upload is a photo or document attached to a message.
type Upload struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Input is everything a handler may look at.
type Input struct {
	// User is nil only for /start from someone the API does not know yet.
	User       *api.User
	TelegramID int64
	Username   string
	Text       string
	// Args holds callback payload fields or command arguments.
	Args  []string
	State *state.UserState
	File  *Upload
}

// Arg returns the i-th argument or an empty string.
func (in Input) Arg(i int) string {
	if i < 0 || i >= len(in.Args) {
		return ""
	}
	return in.Args[i]
}

// Result is what a handler produced.
type Result struct {
	Replies []composer.Response
	Outcome Outcome
	Next    state.State
	Data    map[string]interface{}
}

// Handler is one conversational step.
type Handler func(ctx context.Context, in Input) (Result, error)

// Notifier delivers a message to a chat other than the one being answered.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, r composer.Response) error
}

// Guard tracks withdrawal cooldowns and global message bans.
type Guard interface {
	WithdrawalAllowed(address string) bool
	RecordWithdrawal(address string)
	SetMessagesBan(ctx context.Context, telegramID int64, banned bool) error
}

// API is the part of the exchange API the handlers call.
type API interface {
	GetUser(ctx context.Context, userID int64) (*api.User, error)
	GetUserByTelegram(ctx context.Context, telegramID int64) (*api.User, error)
	GetUserInfo(ctx context.Context, nickname string) (*api.UserInfo, error)
	UserExists(ctx context.Context, telegramID int64) (bool, error)
	NicknameExists(ctx context.Context, nickname string) (bool, error)
	NewUser(ctx context.Context, telegramID int64, campaign, refCode string) (*api.User, error)
	UpdateUser(ctx context.Context, upd api.UserUpdate) error
	UserStat(ctx context.Context, userID int64) (*api.UserStat, error)
	Affiliate(ctx context.Context, userID int64) (*api.Affiliate, error)
	IsWebBound(ctx context.Context, userID int64) (bool, error)
	UserMessagesBanned(ctx context.Context, userID, targetID int64) (bool, error)
	SetUserMessagesBan(ctx context.Context, userID, targetID int64, status bool) error
	SendUserMessage(ctx context.Context, senderID, receiverID int64, text string) error
	SendUserMedia(ctx context.Context, senderID, receiverID, mediaID int64) error
	UploadMedia(ctx context.Context, userID int64, filename string, file io.Reader, contentType string) (*api.Media, error)
	RateUser(ctx context.Context, from, to int64, dealID, method string) error
	AllTelegramIDs(ctx context.Context) ([]int64, error)

	GetWallet(ctx context.Context, userID int64) (*api.Wallet, error)
	CreateWalletIfNotExists(ctx context.Context, userID int64) error
	Rate(ctx context.Context, currency string) (decimal.Decimal, error)
	Settings(ctx context.Context) (*api.Settings, error)
	WithdrawCommission(ctx context.Context, amount decimal.Decimal) (*api.Commission, error)
	ValidateAddress(ctx context.Context, address string) (bool, error)
	SendTransaction(ctx context.Context, req api.SendTransactionRequest) error
	DepositRub(ctx context.Context, userID int64) (string, error)
	Reports(ctx context.Context, userID int64) (api.Reports, error)

	MarketLots(ctx context.Context, userID int64, lotType string) ([]api.MarketLot, error)
	BrokerLots(ctx context.Context, userID int64, lotType, brokerID string) ([]api.Lot, error)
	GetLot(ctx context.Context, identificator string) (*api.Lot, error)
	UserLots(ctx context.Context, userID int64) ([]api.Lot, error)
	CreateLot(ctx context.Context, lot api.NewLot) (*api.Lot, error)
	UpdateLot(ctx context.Context, upd api.LotUpdate) error
	DeleteLot(ctx context.Context, identificator string, userID int64) error
	ToggleTrading(ctx context.Context, userID int64) error
	Brokers(ctx context.Context, currency string) ([]api.Broker, error)
	Currencies(ctx context.Context) ([]api.Currency, error)
	LastRequisites(ctx context.Context, userID int64, currency, brokerID string) ([]string, error)

	GetDeal(ctx context.Context, id string, expandEmail, withMerchant bool) (*api.Deal, error)
	ActiveDeals(ctx context.Context, userID int64) ([]api.ActiveDeal, error)
	ActiveDealsCount(ctx context.Context, userID int64) (int, error)
	CreateDeal(ctx context.Context, d api.NewDeal) (*api.Deal, error)
	Mask(ctx context.Context, dealID string) (string, error)
	SetMask(ctx context.Context, dealID, mask string) error
	CancelDeal(ctx context.Context, userID int64, dealID string) error
	UpdateDealRequisite(ctx context.Context, userID int64, dealID, requisite string) error
	AdvanceDeal(ctx context.Context, userID int64, dealID string) error
	SendCryptoWithoutAgreement(ctx context.Context, userID int64, dealID string) error
	ConfirmDeclinedFastDeal(ctx context.Context, userID int64, dealID string) error
	GetDispute(ctx context.Context, dealID string) (*api.Dispute, error)
	CreateDispute(ctx context.Context, userID int64, dealID string) (*api.Dispute, error)
	CloseDealAdmin(ctx context.Context, dealID, winner string) error

	ActivePromocodesCount(ctx context.Context, userID int64) (int, error)
	ActivePromocodes(ctx context.Context, userID int64) ([]api.Promocode, error)
	ActivatePromocode(ctx context.Context, userID int64, code string) (*api.PromocodeActivation, error)
	CreatePromocode(ctx context.Context, userID int64, activations int, amount decimal.Decimal) (*api.Promocode, error)
	DeletePromocode(ctx context.Context, userID, promocodeID int64) error

	ChangeBalance(ctx context.Context, userID, adminID int64, amount decimal.Decimal, withOperation bool) error
	SetBalance(ctx context.Context, userID, adminID int64, amount decimal.Decimal) error
	ChangeFrozen(ctx context.Context, userID, adminID int64, amount decimal.Decimal) error
	SetFrozen(ctx context.Context, userID, adminID int64, amount decimal.Decimal) error
	WithdrawFromPaymentsNode(ctx context.Context, adminID int64, address string, amount decimal.Decimal) (string, error)
	CreateCampaign(ctx context.Context, adminID int64, name string) (*api.Campaign, error)
	ResetImbalance(ctx context.Context, adminID int64) error
	FrozenAll(ctx context.Context) ([]api.FrozenEntry, error)
	ToggleWithdrawals(ctx context.Context) (bool, error)
	ToggleFastDeals(ctx context.Context) (bool, error)
	Profit(ctx context.Context) (*api.Profit, error)
	FinReport(ctx context.Context) (api.FinReport, error)
	Transit(ctx context.Context, userID int64) (*api.Transit, error)
	AllReports(ctx context.Context, t, from, to string) (api.Report, error)
	NodeTransaction(ctx context.Context, hash string) (*api.NodeTx, error)
	PaymentInfo(ctx context.Context, id string) (map[string]any, error)
	PaymentV2Info(ctx context.Context, id string) (map[string]any, error)
	SaleInfo(ctx context.Context, id string) (map[string]any, error)
	SaleV2Info(ctx context.Context, id string) (map[string]any, error)
	CPaymentInfo(ctx context.Context, id string) (map[string]any, error)
	WithdrawalInfo(ctx context.Context, id string) (map[string]any, error)
}

// Options carries deployment settings the handlers depend on.
type Options struct {
	Symbol       string
	Decimals     int32
	TestMode     bool
	BotUsername  string
	AgreementURL string
	// SupportIDs may run merchant lookups and control reports without being admins.
	SupportIDs     []int64
	BroadcastDelay time.Duration
}

// Flows implements every conversational handler.
type Flows struct {
	api      API
	comp     *composer.Composer
	guard    Guard
	notifier Notifier
	opts     Options
	log      *slog.Logger
	now      func() time.Time
}

func New(client API, comp *composer.Composer, guard Guard, notifier Notifier, opts Options, log *slog.Logger) *Flows {
	if log == nil {
		log = slog.Default()
	}
	if opts.BroadcastDelay <= 0 {
		opts.BroadcastDelay = 500 * time.Millisecond
	}
	opts.Symbol = strings.ToLower(opts.Symbol)
	return &Flows{
		api:      client,
		comp:     comp,
		guard:    guard,
		notifier: notifier,
		opts:     opts,
		log:      log.With(slog.String("component", "flows")),
		now:      time.Now,
	}
}

// Composer exposes the response composer used by the handlers.
func (f *Flows) Composer() *composer.Composer {
	return f.comp
}

func (f *Flows) view(u *api.User) composer.View {
	if u == nil {
		return f.comp.For("")
	}
	return f.comp.For(u.Lang)
}

// IsLabel reports whether text is the rendered menu_misc label name in any language.
func (f *Flows) IsLabel(name, text string) bool {
	m := f.comp.Labels()
	text = strings.TrimSpace(text)
	for _, lang := range m.Languages() {
		if f.comp.For(lang).Label(name) == text {
			return true
		}
	}
	return false
}

func (f *Flows) isSupport(u *api.User) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin {
		return true
	}
	for _, id := range f.opts.SupportIDs {
		if id == u.TelegramID {
			return true
		}
	}
	return false
}

func reply(rs ...composer.Response) Result {
	return Result{Replies: rs, Outcome: Stay}
}

func advance(next state.State, data map[string]interface{}, rs ...composer.Response) Result {
	return Result{Replies: rs, Outcome: Advance, Next: next, Data: data}
}

func reset(rs ...composer.Response) Result {
	return Result{Replies: rs, Outcome: Reset}
}

// notify sends r to another user. Delivery failures are queued by the notifier.
func (f *Flows) notify(ctx context.Context, chatID int64, r composer.Response) {
	if f.notifier == nil || chatID == 0 {
		return
	}
	if err := f.notifier.Notify(ctx, chatID, r); err != nil {
		f.log.Warn("notify failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// UnknownCommand is the catch-all answer. It also ends any running wizard.
func (f *Flows) UnknownCommand(ctx context.Context, in Input) (Result, error) {
	settings, err := f.api.Settings(ctx)
	if err != nil {
		return Result{}, err
	}
	return reset(f.view(in.User).UnknownCommand(settings.Commission)), nil
}

// cancelKeys is the reply sent when a wizard is abandoned from a given step.
var cancelKeys = map[state.State]string{
	state.StateChooseAddressWithdraw:                 "cancel_withdraw",
	state.StateChooseAmountWithdraw:                  "cancel_withdraw",
	state.StateConfirmationWithdraw:                  "cancel_withdraw",
	state.StateNewLotType:                            "cancel_create_lot",
	state.StateNewLotBroker:                          "cancel_create_lot",
	state.StateNewLotRate:                            "cancel_create_lot",
	state.StateNewLotLimits:                          "cancel_create_lot",
	state.StateEnterSumDeal:                          "cancel_create_deal",
	state.StateEnterReqDeal:                          "cancel_create_deal",
	state.StateConfirmationDeal:                      "cancel_create_deal",
	state.StateEnterReqDealWhileAccepting:            "cancel_enter_req",
	state.StateEnterReqDealWhileAcceptingConfirm:     "cancel_enter_req",
	state.StateConfirmationDeclineDeal:               "decline_cancel_deal",
	state.StateConfirmationDeleteLot:                 "cancel_delete_lot",
	state.StateDeclineDispute:                        "cancel_decline_dispute",
	state.StatePromocodesCount:                       "cancel_create_promocode",
	state.StatePromocodesAmount:                      "cancel_create_promocode",
	state.StateActivatePromocode:                     "cancel_activate_promocode",
	state.StateWriteMessage:                          "cancel_write_message",
	state.StateChangeLimits:                          "cancel_change_lot",
	state.StateChangeRate:                            "cancel_change_lot",
	state.StateChangeConditions:                      "cancel_change_lot",
	state.StateConfirmationFiatSending:               "back_to_main_menu",
	state.StateConfirmationCryptoSending:             "back_to_main_menu",
	state.StateCryptoSendingNoConfirmation:           "back_to_main_menu",
	state.StateCryptoSendingFDDeclined:               "back_to_main_menu",
	state.StateCryptoSendingFDDeclinedWithReq:        "back_to_main_menu",
	state.StateCryptoSendingFDDeclinedWithReqConfirm: "back_to_main_menu",
}

// Cancel abandons whatever wizard is running and shows the main menu. Repeating it is harmless.
func (f *Flows) Cancel(_ context.Context, in Input) (Result, error) {
	key, ok := cancelKeys[in.State.Current()]
	if !ok {
		key = "action_canceled"
	}
	return reset(f.view(in.User).Menu(key, nil)), nil
}

// confirm runs yes on the localized "yes" label, cancels on "no" and treats anything else
// as an unknown command.
func (f *Flows) confirm(ctx context.Context, in Input, yes Handler) (Result, error) {
	switch {
	case f.IsLabel("yes", in.Text):
		return yes(ctx, in)
	case f.IsLabel("no", in.Text):
		return f.Cancel(ctx, in)
	default:
		return f.UnknownCommand(ctx, in)
	}
}
