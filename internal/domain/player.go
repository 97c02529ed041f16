package domain

import (
	"strings"
	"time"
)

// DefaultSkin is equipped on every new player.
const DefaultSkin = "default.png"

// Player is keyed by the Telegram user id and never deleted.
type Player struct {
	ID          int64     `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	Name        string    `db:"name" json:"name"`
	CurrentSkin string    `db:"current_skin" json:"current_skin"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DisplayName joins first and last name the way the client shows it.
func DisplayName(firstName, lastName string) string {
	return strings.TrimSpace(firstName + " " + lastName)
}

// Friend is a player brought in by a referral.
type Friend struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// ReferralEdge records that ReferrerID brought in RefereeID.
type ReferralEdge struct {
	ID         int64     `db:"id" json:"id"`
	ReferrerID int64     `db:"referrer_id" json:"referrer_id"`
	RefereeID  int64     `db:"referee_id" json:"referee_id"`
	Bonus      int64     `db:"bonus" json:"bonus"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ErrorReport is a client-side error sent from the WebApp. Write-only.
type ErrorReport struct {
	ID        int64     `db:"id" json:"id"`
	PlayerID  int64     `db:"player_id" json:"player_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
