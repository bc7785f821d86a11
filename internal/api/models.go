package api

import (
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// Lot types.
const (
	LotBuy  = "buy"
	LotSell = "sell"
)

// Deal states in lifecycle order.
const (
	DealProposed  = "proposed"
	DealConfirmed = "confirmed"
	DealPaid      = "paid"
	DealClosed    = "closed"
	DealDeleted   = "deleted"
)

// DealType distinguishes plain P2P deals from merchant flows.
type DealType int

const (
	DealPlain DealType = iota
	DealFast
	DealSkyPay
	DealSkySell
	DealSkySaleV2
	DealSkyPayV2
)

// DelayedDispute reports whether a dispute on this deal type opens only after a grace period.
func (t DealType) DelayedDispute() bool {
	return t == DealFast || t == DealSkyPay || t == DealSkyPayV2
}

type User struct {
	ID              int64           `json:"id"`
	TelegramID      int64           `json:"telegram_id"`
	Nickname        string          `json:"nickname"`
	Lang            string          `json:"lang"`
	Currency        string          `json:"currency"`
	Email           string          `json:"email"`
	Rating          decimal.Decimal `json:"rating"`
	IsAdmin         bool            `json:"is_admin"`
	IsVerify        bool            `json:"is_verify"`
	IsBaned         bool            `json:"is_baned"`
	IsDeleted       bool            `json:"is_deleted"`
	SkyPay          bool            `json:"sky_pay"`
	SuperVerifyOnly bool            `json:"super_verify_only"`
	ShadowBan       bool            `json:"shadow_ban"`
	ApplyShadowBan  bool            `json:"apply_shadow_ban"`
	AllowSuperBuy   bool            `json:"allow_super_buy"`
	AllowSell       bool            `json:"allow_sell"`
	AllowSaleV2     bool            `json:"allow_sale_v2"`
}

// HasChat reports whether the user can be messaged on Telegram.
func (u User) HasChat() bool {
	return u.TelegramID != 0
}

// CanDispute reports whether the user is trusted enough to open disputes.
func (u User) CanDispute() bool {
	return u.Rating.IsPositive() || u.IsVerify
}

// UserStat holds aggregate trading figures.
type UserStat struct {
	Deals          int             `json:"deals"`
	Revenue        decimal.Decimal `json:"revenue"`
	DaysRegistered int             `json:"days_registered"`
	Likes          int             `json:"likes"`
	Dislikes       int             `json:"dislikes"`
	Rating         decimal.Decimal `json:"rating"`
	RatingLogo     string          `json:"rating_logo"`
	Deposited      decimal.Decimal `json:"deposited"`
	Withdrawn      decimal.Decimal `json:"withdrawn"`
}

// UserInfo is a user profile merged with trading stats.
type UserInfo struct {
	User
	Balance        decimal.Decimal `json:"balance"`
	Deals          int             `json:"deals"`
	Revenue        decimal.Decimal `json:"revenue"`
	DaysRegistered int             `json:"days_registered"`
	Likes          int             `json:"likes"`
	Dislikes       int             `json:"dislikes"`
	RatingLogo     string          `json:"rating_logo"`
}

type Wallet struct {
	Address         string          `json:"address"`
	LastAddress     string          `json:"last_address"`
	Balance         decimal.Decimal `json:"balance"`
	Frozen          decimal.Decimal `json:"frozen"`
	BalanceCurrency decimal.Decimal `json:"balance_currency"`
	WithdrawalLimit decimal.Decimal `json:"withdrawal_limit"`
	IsActive        bool            `json:"is_active"`
}

type CurrencySettings struct {
	ID            string          `json:"id"`
	RateVariation decimal.Decimal `json:"rate_variation"`
}

type Settings struct {
	Symbol           string             `json:"symbol"`
	CoinName         string             `json:"coin_name"`
	MinTxAmount      decimal.Decimal    `json:"min_tx_amount"`
	Commission       decimal.Decimal    `json:"commission"`
	DisputeTime      int                `json:"dispute_time"`
	BaseDealTime     int                `json:"base_deal_time"`
	AdvancedDealTime int                `json:"advanced_deal_time"`
	ControlChat      int64              `json:"control_chat"`
	DealControlChat  int64              `json:"deal_control_chat"`
	MessagesChat     int64              `json:"messages_chat"`
	ProfitsChat      int64              `json:"profits_chat"`
	EarningsChat     int64              `json:"earnings_chat"`
	Currencies       []CurrencySettings `json:"currencies"`
}

// RateVariation returns the allowed rate deviation for currency.
func (s Settings) RateVariation(currency string) (decimal.Decimal, bool) {
	for _, c := range s.Currencies {
		if c.ID == currency {
			return c.RateVariation, true
		}
	}
	return decimal.Zero, false
}

type Commission struct {
	Commission         decimal.Decimal     `json:"commission"`
	DynamicCommissions [][]decimal.Decimal `json:"dynamic_commissions"`
}

type Broker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Currency struct {
	ID string `json:"id"`
}

type Lot struct {
	Identificator string              `json:"identificator"`
	UserID        int64               `json:"user_id"`
	Type          string              `json:"type"`
	Symbol        string              `json:"symbol"`
	Currency      string              `json:"currency"`
	Broker        string              `json:"broker"`
	Rate          decimal.Decimal     `json:"rate"`
	Coefficient   decimal.NullDecimal `json:"coefficient"`
	LimitFrom     int64               `json:"limit_from"`
	LimitTo       int64               `json:"limit_to"`
	Details       string              `json:"details"`
	IsActive      bool                `json:"is_active"`
	IsDeleted     bool                `json:"is_deleted"`
	IsVerify      bool                `json:"is_verify"`
	IsOnline      bool                `json:"is_online"`
	Owner         bool                `json:"owner"`
}

// SellerID returns who supplies crypto if taker starts a deal on this lot.
func (l Lot) SellerID(taker int64) int64 {
	if l.Type == LotSell {
		return l.UserID
	}
	return taker
}

// MarketLot is one broker row of the market overview.
type MarketLot struct {
	Broker Broker          `json:"broker"`
	Rate   decimal.Decimal `json:"rate"`
	Count  int             `json:"cnt"`
}

type NewLot struct {
	Type        string           `json:"type"`
	LimitFrom   int64            `json:"limit_from"`
	LimitTo     int64            `json:"limit_to"`
	Broker      string           `json:"broker"`
	Rate        decimal.Decimal  `json:"rate"`
	Coefficient *decimal.Decimal `json:"coefficient,omitempty"`
	UserID      int64            `json:"user_id"`
}

// LotUpdate carries optional lot changes; nil fields are left untouched.
type LotUpdate struct {
	Identificator  string           `json:"identificator"`
	UserID         int64            `json:"user_id"`
	LimitFrom      *int64           `json:"limit_from"`
	LimitTo        *int64           `json:"limit_to"`
	Rate           *decimal.Decimal `json:"rate"`
	Coefficient    *decimal.Decimal `json:"coefficient"`
	Details        *string          `json:"details"`
	ActivityStatus *bool            `json:"activity_status"`
}

type DealParty struct {
	ID         int64           `json:"id"`
	TelegramID int64           `json:"telegram_id"`
	Nickname   string          `json:"nickname"`
	Lang       string          `json:"lang"`
	Email      string          `json:"email"`
	Rating     decimal.Decimal `json:"rating"`
	IsVerify   bool            `json:"is_verify"`
}

type Merchant struct {
	RequiredMask bool `json:"required_mask"`
}

type Deal struct {
	Identificator    string          `json:"identificator"`
	State            string          `json:"state"`
	Type             DealType        `json:"type"`
	Symbol           string          `json:"symbol"`
	Currency         string          `json:"currency"`
	Broker           string          `json:"broker"`
	Rate             decimal.Decimal `json:"rate"`
	Amount           decimal.Decimal `json:"amount"`
	AmountCurrency   decimal.Decimal `json:"amount_currency"`
	BuyerCommission  decimal.Decimal `json:"buyer_commission"`
	SellerCommission decimal.Decimal `json:"seller_commission"`
	Requisite        string          `json:"requisite"`
	Created          string          `json:"created"`
	EndTime          string          `json:"end_time"`
	PaymentID        string          `json:"payment_id"`
	PaymentV2ID      string          `json:"payment_v2_id"`
	DisputeExists    bool            `json:"dispute_exists"`
	Lot              Lot             `json:"lot"`
	Buyer            DealParty       `json:"buyer"`
	Seller           DealParty       `json:"seller"`
	Merchant         *Merchant       `json:"merchant"`
}

// CreatedAt parses Created as UTC.
func (d Deal) CreatedAt() time.Time {
	return ParseTime(d.Created)
}

// RequiredMask reports whether the merchant behind the deal asks for masked requisites.
func (d Deal) RequiredMask() bool {
	return d.PaymentID != "" && d.Merchant != nil && d.Merchant.RequiredMask
}

// IsParticipant reports whether userID is buyer or seller.
func (d Deal) IsParticipant(userID int64) bool {
	return d.Buyer.ID == userID || d.Seller.ID == userID
}

type NewDeal struct {
	LotID          string          `json:"lot_id"`
	AmountCurrency decimal.Decimal `json:"amount_currency"`
	Amount         decimal.Decimal `json:"amount"`
	Requisite      string          `json:"requisite"`
	Rate           decimal.Decimal `json:"rate"`
	UserID         int64           `json:"user_id"`
}

type ActiveDeal struct {
	Identificator  string          `json:"identificator"`
	State          string          `json:"state"`
	Broker         string          `json:"broker"`
	Currency       string          `json:"currency"`
	AmountCurrency decimal.Decimal `json:"amount_currency"`
	DisputeExists  bool            `json:"dispute_exists"`
}

type Dispute struct {
	Initiator *DealParty `json:"initiator"`
	Opponent  *DealParty `json:"opponent"`
}

// Opened reports whether any side has opened the dispute.
func (d *Dispute) Opened() bool {
	return d != nil && d.Initiator != nil
}

// Both reports whether both sides have opened the dispute.
func (d *Dispute) Both() bool {
	return d != nil && d.Initiator != nil && d.Opponent != nil
}

// Involves reports whether userID already opened the dispute on either side.
func (d *Dispute) Involves(userID int64) bool {
	if d == nil {
		return false
	}
	return (d.Initiator != nil && d.Initiator.ID == userID) || (d.Opponent != nil && d.Opponent.ID == userID)
}

type Promocode struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Count       int             `json:"count"`
	Activations int             `json:"activations"`
}

type PromocodeActivation struct {
	OwnerID int64           `json:"owner_id"`
	Amount  decimal.Decimal `json:"amount"`
}

type Affiliate struct {
	InvitedCount          int             `json:"invited_count"`
	EarnedFromRef         decimal.Decimal `json:"earned_from_ref"`
	EarnedFromRefCurrency decimal.Decimal `json:"earned_from_ref_currency"`
	RefCode               string          `json:"ref_code"`
}

type SendTransactionRequest struct {
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Address   string          `json:"address"`
	WithProxy bool            `json:"with_proxy"`
	Token     *string         `json:"token"`
}

// UserUpdate carries optional profile changes; nil fields are left untouched.
type UserUpdate struct {
	UserID          int64   `json:"user_id"`
	Currency        *string `json:"currency"`
	Lang            *string `json:"lang"`
	IsDeleted       *bool   `json:"is_deleted"`
	IsVerify        *bool   `json:"is_verify"`
	SuperVerifyOnly *bool   `json:"super_verify_only"`
	IsBaned         *bool   `json:"is_baned"`
	AllowSell       *bool   `json:"allow_sell"`
	AllowSaleV2     *bool   `json:"allow_sale_v2"`
	SkyPay          *bool   `json:"sky_pay"`
	AllowSuperBuy   *bool   `json:"allow_super_buy"`
	ShadowBan       *bool   `json:"shadow_ban"`
	ApplyShadowBan  *bool   `json:"apply_shadow_ban"`
}

type Media struct {
	ID int64 `json:"id"`
}

type Transit struct {
	Address    string          `json:"address"`
	PrivateKey string          `json:"pk"`
	Balance    decimal.Decimal `json:"balance"`
}

type FrozenEntry struct {
	User   string          `json:"user"`
	Frozen decimal.Decimal `json:"frozen"`
}

type Campaign struct {
	Name          string   `json:"name"`
	Registrations int      `json:"registrations"`
	Links         []string `json:"links"`
}

type StatusToggle struct {
	Status bool `json:"status"`
}

type WalletFunds struct {
	Confirmed   decimal.Decimal `json:"confirmed"`
	Unconfirmed decimal.Decimal `json:"unconfirmed"`
	Secondary   decimal.Decimal `json:"secondary"`
	CPayments   decimal.Decimal `json:"cpayments"`
	Deposits    decimal.Decimal `json:"deposits"`
	Withdraws   decimal.Decimal `json:"withdraws"`
}

// Profit is the treasury summary. WalletFunds is an object for btc and a plain number otherwise.
type Profit struct {
	Users       int                 `json:"users"`
	DBFunds     decimal.Decimal     `json:"db_funds"`
	Profit      decimal.Decimal     `json:"profit"`
	Imbalance   decimal.Decimal     `json:"imbalance"`
	TRXBalance  decimal.Decimal     `json:"trx_balance"`
	WalletFunds jsoniter.RawMessage `json:"wallet_funds"`
	Binance     decimal.NullDecimal `json:"binance"`
}

// Funds decodes WalletFunds either as a breakdown or as a single total.
func (p Profit) Funds() (WalletFunds, decimal.Decimal, bool) {
	var breakdown WalletFunds
	if err := json.Unmarshal(p.WalletFunds, &breakdown); err == nil {
		return breakdown, decimal.Zero, true
	}
	var total decimal.Decimal
	_ = json.Unmarshal(p.WalletFunds, &total)
	return WalletFunds{}, total, false
}

// FinReport holds earnings by source and interval, keyed "<source>_<interval>".
type FinReport map[string]decimal.Decimal

// Report rows are free-form objects.
type Report = []map[string]any

// Reports groups a user's report rows by report name.
type Reports map[string]Report

// ParseTime accepts the timestamp layouts the API emits and returns UTC.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02 15:04:05.999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
