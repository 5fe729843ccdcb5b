package models

type ScreenType string

const (
	ScreenUnknown              ScreenType = "unknown"
	ScreenLogin                ScreenType = "login"
	ScreenOTPVerification      ScreenType = "otp_verification"
	ScreenDashboard            ScreenType = "dashboard"
	ScreenAppointmentSelection ScreenType = "appointment_selection"
	ScreenDateSelection        ScreenType = "date_selection"
	ScreenTimeSelection        ScreenType = "time_selection"
	ScreenConfirmation         ScreenType = "confirmation"
	ScreenSuccess              ScreenType = "success"
	ScreenError                ScreenType = "error"
	ScreenCaptcha              ScreenType = "captcha"
	ScreenMaintenance          ScreenType = "maintenance"
	ScreenBlocked              ScreenType = "blocked"
	ScreenNoAppointment        ScreenType = "no_appointment"
)

// ScreenInfo — результат одной классификации страницы.
// Пересобирается на каждый вызов, после создания не мутируется.
type ScreenInfo struct {
	ScreenType       ScreenType        `json:"screen_type"`
	URL              string            `json:"url"`
	Title            string            `json:"title"`
	HasCaptcha       bool              `json:"has_captcha"`
	HasError         bool              `json:"has_error"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	AvailableActions []string          `json:"available_actions"`
	Metadata         map[string]string `json:"metadata"`
}
