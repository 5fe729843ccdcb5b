package services

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"visaradar/internal/models"
)

type EmailService interface {
	SendVerificationCode(email, code string) error
	SendAppointmentAlert(email, countryName string, result *models.AvailabilityResult) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendVerificationCode(email, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your verification code")

	body := fmt.Sprintf(`
		<h3>Verification code</h3>
		<p>Your verification code is: <strong>%s</strong></p>
		<p>The code expires in 5 minutes. If you did not request it, ignore this email.</p>
	`, code)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}

func (s *emailService) SendAppointmentAlert(email, countryName string, result *models.AvailabilityResult) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", fmt.Sprintf("Appointment slots found: %s", countryName))

	body := fmt.Sprintf(`
		<h2>Appointment availability: %s</h2>
		<p>Location: %s</p>
		<p>Category: %s</p>
		<p>Dates found: %d, slots: %d</p>
		<p>Earliest date: %s</p>
	`, countryName, result.Location, result.Category,
		len(result.AvailableDates), result.TotalSlots(), result.EarliestDate())

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send appointment alert: %w", err)
	}

	return nil
}
