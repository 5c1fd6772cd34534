package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a claimable profile page plus its rolled-up aggregates. The
// aggregates are only ever updated in the same transaction that writes the
// underlying tip rows, so they never diverge from them.
type User struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Identity      string          `gorm:"uniqueIndex" json:"identity"`
	TotalView     int64           `json:"total_view"`
	TotalTips     int64           `json:"total_tips"`
	TotalEarnings decimal.Decimal `gorm:"type:numeric" json:"total_earnings"`
}

// Tip is one recorded donation to a profile. AmountUSD is the settled USD
// value, not the source-token amount.
type Tip struct {
	ID            string          `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	ToUser        string          `gorm:"index" json:"to_user"`
	FromUser      string          `json:"from_user"`
	Message       string          `json:"message"`
	AmountUSD     decimal.Decimal `gorm:"type:numeric" json:"amount_usd"`
	TokenSymbol   string          `json:"token_symbol"`
	SourceChainID int64           `json:"source_chain_id"`
	TxHash        string          `json:"tx_hash"`
}

// Analytics is what the analytics page consumes: the owner's aggregates and
// their most recent tips.
type Analytics struct {
	User *User `json:"user"`
	Tips []Tip `json:"tips"`
}
