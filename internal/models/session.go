package models

import "time"

type ScanStatus string

const (
	StatusIdle         ScanStatus = "idle"
	StatusChecking     ScanStatus = "checking"
	StatusWaitingLogin ScanStatus = "waiting_login"
	StatusLoggingIn    ScanStatus = "logging_in"
	StatusWaitingOTP   ScanStatus = "waiting_otp"
	StatusScanning     ScanStatus = "scanning"
	StatusPaused       ScanStatus = "paused"
	StatusCompleted    ScanStatus = "completed"
	StatusError        ScanStatus = "error"
)

// Active — считается ли статус "активным" для бюджета параллельности.
func (s ScanStatus) Active() bool {
	switch s {
	case StatusChecking, StatusWaitingLogin, StatusLoggingIn, StatusWaitingOTP, StatusScanning:
		return true
	}
	return false
}

// CountrySession — состояние сканирования одной страны.
// Мутируется только через SessionRegistry.
type CountrySession struct {
	SessionID         string     `json:"session_id,omitempty"`
	CountryCode       string     `json:"country_code"`
	Status            ScanStatus `json:"status"`
	CurrentRound      int        `json:"current_round"`
	TotalRounds       int        `json:"total_rounds"`
	CurrentCombo      int        `json:"current_combination"`
	TotalCombos       int        `json:"total_combinations"`
	CurrentProxy      string     `json:"current_proxy,omitempty"`
	StartTime         time.Time  `json:"start_time,omitempty"`
	LastUpdate        time.Time  `json:"last_update,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	AppointmentsFound int        `json:"appointments_found"`
	TotalChecks       int        `json:"total_checks"`
}

type RegistryStats struct {
	ActiveScans            int      `json:"active_scans"`
	MaxParallel            int      `json:"max_parallel"`
	TotalAppointmentsFound int      `json:"total_appointments_found"`
	TotalChecks            int      `json:"total_checks"`
	ActiveCountries        []string `json:"active_countries"`
}
