package state

// entryStates start a flow and may be entered from any state.
var entryStates = map[State]bool{
	StateConfirmPolicy:                  true,
	StateNewLotType:                     true,
	StateEnterSumDeal:                   true,
	StateEnterReqDealWhileAccepting:     true,
	StateConfirmationFiatSending:        true,
	StateConfirmationCryptoSending:      true,
	StateCryptoSendingNoConfirmation:    true,
	StateCryptoSendingFDDeclined:        true,
	StateCryptoSendingFDDeclinedWithReq: true,
	StateConfirmationDeclineDeal:        true,
	StateConfirmationDeleteLot:          true,
	StateChooseAddressWithdraw:          true,
	StatePromocodesCount:                true,
	StateActivatePromocode:              true,
	StateWriteMessage:                   true,
	StateChangeLimits:                   true,
	StateChangeRate:                     true,
	StateChangeConditions:               true,
	StateDeclineDispute:                 true,
}

// validTransitions lists the steps inside each wizard.
var validTransitions = map[State][]State{
	StateNewLotType:                     {StateNewLotBroker},
	StateNewLotBroker:                   {StateNewLotRate},
	StateNewLotRate:                     {StateNewLotLimits},
	StateEnterSumDeal:                   {StateEnterReqDeal, StateConfirmationDeal},
	StateEnterReqDeal:                   {StateConfirmationDeal},
	StateEnterReqDealWhileAccepting:     {StateEnterReqDealWhileAcceptingConfirm},
	StateChooseAddressWithdraw:          {StateChooseAmountWithdraw},
	StateChooseAmountWithdraw:           {StateConfirmationWithdraw},
	StatePromocodesCount:                {StatePromocodesAmount},
	StateCryptoSendingFDDeclinedWithReq: {StateCryptoSendingFDDeclinedWithReqConfirm},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle || to == from || entryStates[to] {
		return true
	}

	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}

	return false
}
