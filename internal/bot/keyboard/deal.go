package keyboard

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
)

// DisputeDelay is how long fast and merchant deals wait before the seller may open a dispute.
const DisputeDelay = 5 * time.Minute

// DealView is everything the deal card keyboard depends on.
type DealView struct {
	Deal         api.Deal
	ViewerID     int64
	IsAdmin      bool
	RequiredMask bool
	Mask         string
	Now          time.Time
}

// SellerDisputeReady reports whether the seller of a paid deal may open a dispute now.
func SellerDisputeReady(deal api.Deal, now time.Time) bool {
	if !deal.Seller.Rating.IsPositive() {
		return false
	}
	if deal.Type.DelayedDispute() {
		return deal.CreatedAt().Before(now.Add(-DisputeDelay))
	}
	return true
}

// Deal builds the action buttons of a deal card. It returns nil when the viewer has nothing to do.
func (b *Builder) Deal(t i18n.Translator, v DealView) *telebot.ReplyMarkup {
	d := v.Deal
	id := d.Identificator
	isBuyer := d.Buyer.ID == v.ViewerID
	isSeller := d.Seller.ID == v.ViewerID

	// merchant v2 deals are driven by the merchant on that side
	if (d.Type == api.DealSkyPayV2 && isBuyer) || (d.Type == api.DealSkySaleV2 && isSeller) {
		return nil
	}

	kb := NewInlineKeyboard()

	if d.State == api.DealConfirmed && isSeller &&
		(d.Type == api.DealSkyPay || d.Type == api.DealSkyPayV2) && !v.RequiredMask {
		kb.AddRow(btn(t, "send_crypto_without_agreement", CbSendCryptoNoAgree, id, nil))
	}

	switch {
	case d.State == api.DealProposed && d.Lot.UserID == v.ViewerID:
		kb.AddRow(btn(t, "accept_deal", CbAcceptDeal, id, nil), btn(t, "decline_deal", CbCancelDeal, id, nil))
	case d.State == api.DealProposed:
		kb.AddRow(btn(t, "cancel_deal", CbCancelDeal, id, nil))
	case d.State == api.DealConfirmed && isBuyer:
		if !v.RequiredMask {
			kb.AddRow(btn(t, "confirm_sent_fiat", CbConfirmSentFiat, id, nil))
		}
		kb.AddRow(btn(t, "cancel_deal", CbCancelDeal, id, nil))
	case d.State == api.DealPaid && isSeller:
		kb.AddRow(btn(t, "send_crypto", CbSendCrypto, id, nil))
		if SellerDisputeReady(d, v.Now) {
			kb.AddRow(btn(t, "open_dispute", CbOpenDispute, id, nil))
		}
	case d.State == api.DealPaid && isBuyer && (d.Buyer.Rating.IsPositive() || d.Buyer.IsVerify):
		kb.AddRow(btn(t, "open_dispute", CbOpenDispute, id, nil))
	}

	if v.IsAdmin && d.State == api.DealPaid {
		kb.AddRow(InlineButton{Text: "Закрыть в пользу покупателя", Unique: CbCloseDeal, Data: Join(id, "buyer")})
		kb.AddRow(InlineButton{Text: "Закрыть в пользу продавца", Unique: CbCloseDeal, Data: Join(id, "seller")})
	}

	if d.State == api.DealDeleted && (isSeller || v.IsAdmin) &&
		(d.Type == api.DealSkyPay || d.Type == api.DealPlain) && d.Requisite != "" {
		if v.RequiredMask && v.Mask == "" {
			kb.AddRow(btn(t, "run_payment_with_req", CbRunPaymentWithReq, id, nil))
		} else {
			kb.AddRow(btn(t, "run_payment", CbRunPayment, id, nil))
		}
	}

	if kb.Empty() {
		return nil
	}
	return b.build(kb)
}
