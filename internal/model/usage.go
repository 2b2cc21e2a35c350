package model

import (
	"math"
	"time"
)

// Unlimited marks a limit that is never enforced.
const Unlimited = -1

// QuotaScope names a quota dimension.
type QuotaScope string

const (
	QuotaScopeDaily   QuotaScope = "daily"
	QuotaScopeMonthly QuotaScope = "monthly"
)

// UsageRecord is the persisted counter for one owner and period.
// Daily records count generations; monthly records count credit tenths.
type UsageRecord struct {
	OwnerType OwnerType  `json:"owner_type"`
	OwnerID   string     `json:"owner_id"`
	PeriodKey string     `json:"period_key,omitempty"`
	Count     int64      `json:"count"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
}

// Expired reports whether the record's window has already rolled over.
func (r *UsageRecord) Expired(now time.Time) bool {
	return r != nil && r.ResetAt != nil && !now.Before(*r.ResetAt)
}

// QuotaUsage is a caller-facing view of one quota dimension.
type QuotaUsage struct {
	Scope   QuotaScope `json:"scope"`
	Used    float64    `json:"used"`
	Limit   float64    `json:"limit"`
	ResetAt *time.Time `json:"reset_at,omitempty"`
}

// Remaining returns the unused allowance, or +Inf for an unlimited quota.
func (u QuotaUsage) Remaining() float64 {
	if u.Limit < 0 {
		return math.Inf(1)
	}
	return math.Max(0, u.Limit-u.Used)
}

// CreditsBalance is an owner's prepaid credit balance.
type CreditsBalance struct {
	OwnerID string `json:"owner_id"`
	Tenths  int64  `json:"tenths"`
}

// Credits returns the balance in whole credits.
func (b CreditsBalance) Credits() float64 {
	return FromTenths(b.Tenths)
}

// ToTenths converts credits to integer tenths, rounding to the nearest tenth.
func ToTenths(credits float64) int64 {
	return int64(math.Round(credits * 10))
}

// FromTenths converts integer tenths back to credits.
func FromTenths(tenths int64) float64 {
	return float64(tenths) / 10
}
