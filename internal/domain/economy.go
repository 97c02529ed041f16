package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	MaxLevel            = 10
	InitialLevel        = 1
	InitialLevelCost    = int64(1000)
	LevelCostStep       = int64(1000)
	AutoclickerBaseCost = int64(2000)
	ReferralBonus       = int64(100)
)

// Expected business outcomes. Handlers report them as normal responses.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMaxLevelReached   = errors.New("max level reached")
	ErrInvalidItem       = errors.New("invalid item")
	ErrPlayerNotFound    = errors.New("player not found")
)

// IsBusinessError reports whether err is an expected economy outcome
// rather than a system failure.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrMaxLevelReached) ||
		errors.Is(err, ErrInvalidItem)
}

// EconomyState is the mutable per-player row. All Apply* methods assume the
// caller holds the row lock.
type EconomyState struct {
	PlayerID        int64     `db:"player_id" json:"-"`
	Clicks          int64     `db:"clicks" json:"clicks"`
	Coins           int64     `db:"coins" json:"coins"`
	Level           int       `db:"level" json:"level"`
	LevelCost       int64     `db:"level_cost" json:"level_cost"`
	AutoclickerTier int       `db:"autoclicker_tier" json:"autoclicker_tier"`
	UpdatedAt       time.Time `db:"updated_at" json:"-"`
}

// NewEconomyState returns the defaults for a freshly created player.
func NewEconomyState(playerID int64) EconomyState {
	return EconomyState{
		PlayerID:  playerID,
		Level:     InitialLevel,
		LevelCost: InitialLevelCost,
	}
}

// ClickReward is 1 at level 1 and 2^(level-1) above it.
func ClickReward(level int) int64 {
	if level <= 1 {
		return 1
	}
	return int64(1) << (level - 1)
}

// AccrualReward is the autoclicker income for one tick.
func AccrualReward(tier, level int) int64 {
	if tier <= 0 {
		return 0
	}
	return int64(tier) * ClickReward(level)
}

// ApplyClick credits one click and returns the reward.
func (s *EconomyState) ApplyClick() int64 {
	reward := ClickReward(s.Level)
	s.Coins += reward
	s.Clicks++
	return reward
}

// ApplyAccrual credits one autoclicker tick and returns the reward.
func (s *EconomyState) ApplyAccrual() int64 {
	reward := AccrualReward(s.AutoclickerTier, s.Level)
	s.Coins += reward
	return reward
}

// ApplyLevelUp buys the next level. The max level check comes first so a
// max-level player always gets ErrMaxLevelReached regardless of funds.
func (s *EconomyState) ApplyLevelUp() error {
	if s.Level >= MaxLevel {
		return ErrMaxLevelReached
	}
	if err := s.Spend(s.LevelCost); err != nil {
		return err
	}
	s.Level++
	s.LevelCost += LevelCostStep
	return nil
}

// ApplyAutoclicker buys one autoclicker tier for cost.
func (s *EconomyState) ApplyAutoclicker(cost int64) error {
	if err := s.Spend(cost); err != nil {
		return err
	}
	s.AutoclickerTier++
	return nil
}

// ApplySkin buys a skin for price. Equipping is recorded on the player row.
func (s *EconomyState) ApplySkin(price int64) error {
	if price <= 0 {
		return ErrInvalidItem
	}
	return s.Spend(price)
}

// Spend deducts price, keeping coins >= 0.
func (s *EconomyState) Spend(price int64) error {
	if price < 0 {
		return ErrInvalidItem
	}
	if s.Coins < price {
		return ErrInsufficientFunds
	}
	s.Coins -= price
	return nil
}

// AutoclickerPricing selects how the next autoclicker tier is priced.
type AutoclickerPricing string

const (
	// PricingFlat charges AutoclickerBaseCost for every tier.
	PricingFlat AutoclickerPricing = "flat"
	// PricingScaled charges (tier+1)*AutoclickerBaseCost.
	PricingScaled AutoclickerPricing = "scaled"
)

// ParseAutoclickerPricing validates a configured pricing policy.
func ParseAutoclickerPricing(v string) (AutoclickerPricing, error) {
	switch p := AutoclickerPricing(v); p {
	case PricingFlat, PricingScaled:
		return p, nil
	case "":
		return PricingScaled, nil
	default:
		return "", fmt.Errorf("unknown autoclicker pricing %q", v)
	}
}

// Cost returns the price of upgrading from currentTier.
func (p AutoclickerPricing) Cost(currentTier int) int64 {
	if p == PricingFlat {
		return AutoclickerBaseCost
	}
	if currentTier < 0 {
		currentTier = 0
	}
	return int64(currentTier+1) * AutoclickerBaseCost
}

// Snapshot is what the client renders.
type Snapshot struct {
	Coins           int64  `json:"coins"`
	Clicks          int64  `json:"clicks"`
	Level           int    `json:"level"`
	LevelCost       int64  `json:"level_cost"`
	AutoclickerTier int    `json:"autoclicker_tier"`
	EquippedSkin    string `json:"current_skin"`
}

// NewSnapshot combines the economy row with the equipped skin.
func NewSnapshot(s EconomyState, skin string) Snapshot {
	if skin == "" {
		skin = DefaultSkin
	}
	return Snapshot{
		Coins:           s.Coins,
		Clicks:          s.Clicks,
		Level:           s.Level,
		LevelCost:       s.LevelCost,
		AutoclickerTier: s.AutoclickerTier,
		EquippedSkin:    skin,
	}
}

// Accrual is the outcome of crediting one player in an accrual tick.
type Accrual struct {
	PlayerID int64 `json:"player_id"`
	Reward   int64 `json:"reward"`
	Coins    int64 `json:"coins"`
}
