package bot

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/flows"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

// Commands matched literally before the route tables.
const (
	CommandStart  = "/start"
	CommandCancel = "/cancel"
)

// supportKinds maps the merchant lookup commands to their lookup kind.
var supportKinds = map[string]string{
	"p":  composer.InfoPayment,
	"p2": composer.InfoPaymentV2,
	"s":  composer.InfoSale,
	"s2": composer.InfoSaleV2,
	"cp": composer.InfoCPayment,
	"w2": composer.InfoWithdrawal,
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func noop(context.Context, flows.Input) (flows.Result, error) {
	return flows.Result{}, nil
}

func fixed(args ...string) func([]string) ([]string, bool) {
	return func([]string) ([]string, bool) { return args, true }
}

// registerRoutes binds every command, label, button and wizard step to its flow.
func registerRoutes(r *Router, f *flows.Flows) {
	r.SetSpecial(f.Start, f.Cancel, f.UserByForward, f.UnknownCommand)

	r.RegisterLabel("wallet", f.Wallet)
	r.RegisterLabel("exchange", f.Exchange)
	r.RegisterLabel("about", f.About)
	r.RegisterLabel("settings", f.Settings)

	// Views by short id.
	r.RegisterCommand("deal", `^/d([a-zA-Z0-9]+)$`, f.Deal, nil)
	r.RegisterCommand("lot", `^/l([a-zA-Z0-9]+)$`, f.Lot, nil)
	r.RegisterCommand("user", `^/u([a-zA-Z0-9_]+)$`, f.UserProfile, nil)

	// Admin tools.
	r.RegisterCommand("admin_menu", `^/menu$`, f.AdminMenu, nil)
	r.RegisterCommand("get_tx", `^/get_tx\s+(\S+)$`, f.NodeTransaction, nil)
	r.RegisterCommand("monthly_report", `^/r([dpleutfcm])_([0-9]+)_([0-9]+)$`, f.MonthlyReport, func(m []string) ([]string, bool) {
		t, ok := flows.ReportType("r" + m[1])
		if !ok {
			return nil, false
		}
		return []string{t, m[2], m[3]}, true
	})
	r.RegisterCommand("control_report", `^/rcontr_([0-9]+)_([0-9]+)_([0-9]+)$`, f.ControlReport, nil)
	r.RegisterCommand("support_lookup", `^/(p|p2|s|s2|cp|w2) ([0-9a-fA-F-]{36})$`, f.SupportLookup, supportArgs)
	r.RegisterCommand("broadcast", `^/send_notif_all\s`, f.Broadcast, fixed())
	r.RegisterCommand("profit", `^/profit$`, f.Profit, nil)
	r.RegisterCommand("reset_imbalance", `^/rdisbal$`, f.ResetImbalance, nil)
	r.RegisterCommand("frozen_list", `^/frozen$`, f.FrozenList, nil)
	r.RegisterCommand("toggle_withdrawals", `^/stopw$`, f.ToggleWithdrawals, nil)
	r.RegisterCommand("toggle_fast_deals", `^/stopfd$`, f.ToggleFastDeals, nil)
	r.RegisterCommand("fin_report", `^/finreport$`, f.FinReport, nil)
	r.RegisterCommand("change_balance", `^/add(b|bm|f) ([a-zA-Z0-9]+) ([0-9,.-]+)$`, f.ChangeBalance, nil)
	r.RegisterCommand("set_balance", `^/(frozen|balance) ([a-zA-Z0-9]+) ([0-9,.-]+)$`, f.SetBalance, nil)
	r.RegisterCommand("send_from_node", `^/sndtx ([a-zA-Z0-9]+) ([0-9.]+)$`, f.SendFromNode, nil)
	r.RegisterCommand("new_campaign", `^/new_c ([а-яa-zА-ЯA-Z0-9_]+)$`, f.NewCampaign, nil)
	r.RegisterCommand("ban_messages", `^/ban_messages_all ([0-9]+)$`, f.MessagesBanAll, func(m []string) ([]string, bool) {
		return []string{"1", m[1]}, true
	})
	r.RegisterCommand("unban_messages", `^/cban_messages_all ([0-9]+)$`, f.MessagesBanAll, func(m []string) ([]string, bool) {
		return []string{"0", m[1]}, true
	})

	callbacks := map[string]flows.Handler{
		keyboard.CbNoop: noop,

		keyboard.CbWallet:     f.Wallet,
		keyboard.CbDeposit:    f.Deposit,
		keyboard.CbDepositRub: f.DepositRub,
		keyboard.CbWithdraw:   f.Withdraw,
		keyboard.CbReports:    f.Reports,

		keyboard.CbExchange:    f.Exchange,
		keyboard.CbMarket:      f.Market,
		keyboard.CbBrokerLots:  f.BrokerLots,
		keyboard.CbLot:         f.Lot,
		keyboard.CbHandleLots:  f.HandleLots,
		keyboard.CbCreateLot:   f.CreateLot,
		keyboard.CbActiveDeals: f.ActiveDeals,

		keyboard.CbChangeLimits:     f.ChangeLimits,
		keyboard.CbChangeRate:       f.ChangeRate,
		keyboard.CbChangeConditions: f.ChangeConditions,
		keyboard.CbDeleteLot:        f.DeleteLot,
		keyboard.CbLotStatus:        f.LotStatus,

		keyboard.CbDeal:              f.Deal,
		keyboard.CbBeginDeal:         f.BeginDeal,
		keyboard.CbAcceptDeal:        f.AcceptDeal,
		keyboard.CbCancelDeal:        f.CancelDeal,
		keyboard.CbConfirmSentFiat:   f.ConfirmSentFiat,
		keyboard.CbSendCrypto:        f.SendCrypto,
		keyboard.CbSendCryptoNoAgree: f.SendCryptoNoAgreement,
		keyboard.CbRunPayment:        f.RunPayment,
		keyboard.CbRunPaymentWithReq: f.RunPaymentWithReq,
		keyboard.CbOpenDispute:       f.OpenDispute,
		keyboard.CbDeclineDispute:    f.DeclineDispute,
		keyboard.CbCloseDeal:         f.CloseDeal,
		keyboard.CbLike:              f.RateUser("like"),
		keyboard.CbDislike:           f.RateUser("dislike"),

		keyboard.CbAbout:         f.About,
		keyboard.CbCommunication: f.Communication,
		keyboard.CbFriends:       f.Friends,
		keyboard.CbAffiliate:     f.Affiliate,
		keyboard.CbGetCode:       f.GetCode,

		keyboard.CbSettings:         f.Settings,
		keyboard.CbLangSettings:     f.LangSettings,
		keyboard.CbRateSettings:     f.RateSettings,
		keyboard.CbCurrencySettings: f.CurrencySettings,

		keyboard.CbPromocodes:        f.Promocodes,
		keyboard.CbCreatePromocode:   f.CreatePromocode,
		keyboard.CbActivatePromocode: f.ActivatePromocode,
		keyboard.CbActivePromocodes:  f.ActivePromocodes,
		keyboard.CbDeletePromocode:   f.DeletePromocode,

		keyboard.CbWriteMessage: f.WriteMessage,
		keyboard.CbToggle:       f.Toggle,
		keyboard.CbUserReport:   f.UserReport,
		keyboard.CbTransit:      f.Transit,
		keyboard.CbShowToken:    f.ShowToken,
		keyboard.CbDeclineToken: f.DeclineToken,
		keyboard.CbAdminReport:  f.AdminReport,
	}
	for unique, h := range callbacks {
		r.RegisterCallback(unique, h)
	}
	r.RegisterRefreshingCallback(keyboard.CbLang, f.UpdateLang)
	r.RegisterRefreshingCallback(keyboard.CbChooseCurrency, f.ChooseCurrency)
	r.RegisterRefreshingCallback(keyboard.CbToggleTrading, f.ToggleTrading)

	steps := map[state.State]flows.Handler{
		state.StateConfirmPolicy: f.ConfirmPolicy,

		state.StateNewLotType:   f.NewLotType,
		state.StateNewLotBroker: f.NewLotBroker,
		state.StateNewLotRate:   f.NewLotRate,
		state.StateNewLotLimits: f.NewLotLimits,

		state.StateEnterSumDeal:                      f.EnterSumDeal,
		state.StateEnterReqDeal:                      f.EnterReqDeal,
		state.StateConfirmationDeal:                  f.ConfirmDeal,
		state.StateEnterReqDealWhileAccepting:        f.EnterReqAccepting,
		state.StateEnterReqDealWhileAcceptingConfirm: f.EnterReqAcceptingConfirm,

		state.StateConfirmationFiatSending:               f.ConfirmSentFiatFinal,
		state.StateConfirmationCryptoSending:             f.SendCryptoConfirm,
		state.StateCryptoSendingNoConfirmation:           f.SendCryptoNoAgreementConfirm,
		state.StateCryptoSendingFDDeclined:               f.RunPaymentConfirm,
		state.StateCryptoSendingFDDeclinedWithReq:        f.RunPaymentRequisite,
		state.StateCryptoSendingFDDeclinedWithReqConfirm: f.RunPaymentWithReqConfirm,
		state.StateConfirmationDeclineDeal:               f.CancelDealConfirm,
		state.StateConfirmationDeleteLot:                 f.DeleteLotConfirm,

		state.StateChooseAddressWithdraw: f.WithdrawAddress,
		state.StateChooseAmountWithdraw:  f.WithdrawAmount,
		state.StateConfirmationWithdraw:  f.WithdrawConfirm,

		state.StatePromocodesCount:   f.PromocodeCount,
		state.StatePromocodesAmount:  f.PromocodeAmount,
		state.StateActivatePromocode: f.CheckPromocode,

		state.StateWriteMessage: f.SendMessage,

		state.StateChangeLimits:     f.EditLimits,
		state.StateChangeRate:       f.EditRate,
		state.StateChangeConditions: f.EditConditions,

		state.StateDeclineDispute: f.DeclineDisputeConfirm,
	}
	for s, h := range steps {
		r.RegisterStateHandler(s, h)
	}
}

// supportArgs turns "/w2 <UUID>" into the lookup kind and the canonical lowercase id.
func supportArgs(m []string) ([]string, bool) {
	id, err := uuid.Parse(m[2])
	if err != nil {
		return nil, false
	}
	return []string{supportKinds[m[1]], id.String()}, true
}
