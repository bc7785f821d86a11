package keyboard

// Callback uniques. Payload fields after the unique are joined with CallbackDataSeparator.
const (
	CbNoop = "noop"

	CbWallet     = "wallet"
	CbDeposit    = "deposit"
	CbDepositRub = "deposit_rub"
	CbWithdraw   = "withdraw"
	CbReports    = "reports"

	CbExchange      = "exchange"
	CbMarket        = "market"      // type:page
	CbBrokerLots    = "lots"        // type:broker:page
	CbLot           = "lot"         // lot id
	CbHandleLots    = "handle_lots" // page
	CbCreateLot     = "create_lot"
	CbToggleTrading = "trading"
	CbActiveDeals   = "active_deals"

	CbChangeLimits     = "change_limits"
	CbChangeRate       = "change_rate"
	CbChangeConditions = "change_conditions"
	CbDeleteLot        = "delete_lot"
	CbLotStatus        = "lot_status"

	CbDeal              = "deal"
	CbBeginDeal         = "begin_deal"
	CbAcceptDeal        = "accept_deal"
	CbCancelDeal        = "cancel_deal"
	CbConfirmSentFiat   = "confirm_sent_fiat"
	CbSendCrypto        = "send_crypto"
	CbSendCryptoNoAgree = "send_crypto_wo"
	CbRunPayment        = "run_payment"
	CbRunPaymentWithReq = "run_payment_req"
	CbOpenDispute       = "open_dispute"
	CbDeclineDispute    = "decline_dispute"
	CbCloseDeal         = "close_deal" // deal id:winner
	CbLike              = "like"       // user id:deal id
	CbDislike           = "dislike"

	CbAbout         = "about"
	CbCommunication = "communication"
	CbFriends       = "friends"
	CbAffiliate     = "affiliate"
	CbGetCode       = "get_code"

	CbSettings         = "settings"
	CbLangSettings     = "lang_settings"
	CbLang             = "lang"
	CbRateSettings     = "rate_settings"
	CbCurrencySettings = "currency_settings"
	CbChooseCurrency   = "choose_currency"

	CbPromocodes        = "promocodes"
	CbCreatePromocode   = "create_promocode" // crypto|fiat, empty shows the type choice
	CbActivatePromocode = "activate_promocode"
	CbActivePromocodes  = "active_promocodes"
	CbDeletePromocode   = "delete_promocode"

	CbWriteMessage = "write_message"
	CbToggle       = "toggle"      // field:user id
	CbUserReport   = "user_report" // kind:user id
	CbTransit      = "transit"
	CbShowToken    = "show"
	CbDeclineToken = "decline_token"
	CbAdminReport  = "report"
)

// Promo code kinds.
const (
	PromoCrypto = "crypto"
	PromoFiat   = "fiat"
)
