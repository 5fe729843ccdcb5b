package models

import "time"

type NotificationType string

const (
	NotifyInfo             NotificationType = "info"
	NotifySuccess          NotificationType = "success"
	NotifyWarning          NotificationType = "warning"
	NotifyError            NotificationType = "error"
	NotifyAppointmentFound NotificationType = "appointment_found"
	NotifyOTPRequired      NotificationType = "otp_required"
	NotifyLoginSuccess     NotificationType = "login_success"
	NotifyLoginFailed      NotificationType = "login_failed"
	NotifyScanStarted      NotificationType = "scan_started"
	NotifyScanStopped      NotificationType = "scan_stopped"
)

type NotificationPriority int

const (
	PriorityLow NotificationPriority = iota + 1
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

type Notification struct {
	Type       NotificationType     `json:"type"`
	Title      string               `json:"title"`
	Message    string               `json:"message"`
	Priority   NotificationPriority `json:"priority"`
	Timestamp  time.Time            `json:"timestamp"`
	Data       map[string]string    `json:"data,omitempty"`
	Screenshot []byte               `json:"-"`
}
