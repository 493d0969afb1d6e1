package models

type User struct {
	ID                   string `json:"user_id"`
	Name                 string `json:"name,omitempty"`
	Email                string `json:"email"`
	Password             string `json:"-"`
	Role                 string `json:"role,omitempty"`
	Provider             string `json:"provider,omitempty"`
	ProviderID           string `json:"-"`
	ReferralCode         string `json:"referral_code,omitempty"`
	ReferredBy           string `json:"referred_by,omitempty"`
	ReferralBonusApplied bool   `json:"referral_bonus_applied"`
}
