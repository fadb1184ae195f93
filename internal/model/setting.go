package model

import "time"

// AppSetting represents a key-value pair for global application configuration.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateSettingsRequest is the payload for bulk updating settings.
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

// Setting keys backing the payment instructions page.
const (
	SettingTelebirrNumber  = "payment.telebirr_number"
	SettingCBEAccount      = "payment.cbe_account"
	SettingCBEAccountName  = "payment.cbe_account_name"
	SettingContactEmail    = "payment.contact_email"
	SettingContactTelegram = "payment.contact_telegram"
	SettingApprovalWindow  = "payment.approval_window"
)

// PaymentInstructions is the public payment page content.
type PaymentInstructions struct {
	TelebirrNumber  string `json:"telebirr_number"`
	CBEAccount      string `json:"cbe_account"`
	CBEAccountName  string `json:"cbe_account_name"`
	ContactEmail    string `json:"contact_email"`
	ContactTelegram string `json:"contact_telegram"`
	ApprovalWindow  string `json:"approval_window"`
	Plans           []Plan `json:"plans"`
}
