package domain

import "time"

// Ledger entry types. Clicks and accrual are not itemised.
const (
	TxLevelUp            = "level_up"
	TxAutoclickerUpgrade = "autoclicker_upgrade"
	TxSkinPurchase       = "skin_purchase"
	TxReferralBonus      = "referral_bonus"
)

type Transaction struct {
	ID        int64                  `db:"id" json:"id"`
	PlayerID  int64                  `db:"player_id" json:"player_id"`
	Type      string                 `db:"type" json:"type"`
	Amount    int64                  `db:"amount" json:"amount"`
	Meta      map[string]interface{} `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}
