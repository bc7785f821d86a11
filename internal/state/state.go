package state

import (
	"fmt"
	"strconv"
	"time"
)

// State is one wizard step. Idle means no flow is running.
type State string

const (
	StateIdle State = "idle"

	StateConfirmPolicy State = "confirm_policy"

	StateNewLotType   State = "new_lot_type"
	StateNewLotBroker State = "new_lot_broker"
	StateNewLotRate   State = "new_lot_rate"
	StateNewLotLimits State = "new_lot_limits"

	StateEnterSumDeal                      State = "enter_sum_deal"
	StateEnterReqDeal                      State = "enter_req_deal"
	StateConfirmationDeal                  State = "confirmation_deal"
	StateEnterReqDealWhileAccepting        State = "enter_req_deal_while_accepting"
	StateEnterReqDealWhileAcceptingConfirm State = "enter_req_deal_while_accepting_confirm"

	StateConfirmationFiatSending               State = "confirmation_fiat_sending"
	StateConfirmationCryptoSending             State = "confirmation_crypto_sending"
	StateCryptoSendingNoConfirmation           State = "crypto_sending_no_confirmation"
	StateCryptoSendingFDDeclined               State = "crypto_sending_fd_declined"
	StateCryptoSendingFDDeclinedWithReq        State = "crypto_sending_fd_declined_with_req"
	StateCryptoSendingFDDeclinedWithReqConfirm State = "crypto_sending_fd_declined_with_req_confirmation"
	StateConfirmationDeclineDeal               State = "confirmation_decline_deal"
	StateConfirmationDeleteLot                 State = "confirmation_delete_lot"

	StateChooseAddressWithdraw State = "choose_address_withdraw"
	StateChooseAmountWithdraw  State = "choose_amount_withdraw"
	StateConfirmationWithdraw  State = "confirmation_withdraw"

	StatePromocodesCount   State = "choose_promocodes_count"
	StatePromocodesAmount  State = "choose_promocodes_amount"
	StateActivatePromocode State = "activate_promocode"

	StateWriteMessage State = "write_message"

	StateChangeLimits     State = "change_limits"
	StateChangeRate       State = "change_rate"
	StateChangeConditions State = "change_conditions"

	StateDeclineDispute State = "decline_dispute"
)

// Qualify returns the persisted form of s for a deployment, e.g. "write_message_btc".
func (s State) Qualify(symbol string) string {
	if s == StateIdle || symbol == "" {
		return string(s)
	}
	return string(s) + "_" + symbol
}

// Unqualify strips the deployment suffix added by Qualify.
func Unqualify(raw, symbol string) State {
	suffix := "_" + symbol
	if symbol != "" && len(raw) > len(suffix) && raw[len(raw)-len(suffix):] == suffix {
		return State(raw[:len(raw)-len(suffix)])
	}
	return State(raw)
}

// UserState captures the current FSM state for a Telegram user.
type UserState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Current returns the state, treating a nil record as idle.
func (u *UserState) Current() State {
	if u == nil || u.CurrentState == "" {
		return StateIdle
	}
	return u.CurrentState
}

// String reads a text value from the data bag.
func (u *UserState) String(key string) string {
	if u == nil {
		return ""
	}
	switch v := u.Context[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int64 reads an integer from the data bag. JSON numbers come back as float64.
func (u *UserState) Int64(key string) int64 {
	if u == nil {
		return 0
	}
	switch v := u.Context[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// Bool reads a flag from the data bag.
func (u *UserState) Bool(key string) bool {
	if u == nil {
		return false
	}
	b, _ := u.Context[key].(bool)
	return b
}

// Data returns a copy of the data bag merged with extra.
func (u *UserState) Data(extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	if u != nil {
		for k, v := range u.Context {
			out[k] = v
		}
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
