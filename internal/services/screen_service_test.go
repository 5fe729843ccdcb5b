package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visaradar/internal/models"
)

func TestClassifyByURL(t *testing.T) {
	cases := []struct {
		url  string
		want models.ScreenType
	}{
		{"https://visa.example.com/tur/fra/login", models.ScreenLogin},
		{"https://visa.example.com/otp", models.ScreenOTPVerification},
		{"https://visa.example.com/dashboard", models.ScreenDashboard},
		{"https://visa.example.com/appointment/new", models.ScreenAppointmentSelection},
		{"https://visa.example.com/calendar", models.ScreenDateSelection},
		{"https://visa.example.com/confirm", models.ScreenConfirmation},
		{"https://visa.example.com/success", models.ScreenSuccess},
		{"https://visa.example.com/somewhere", models.ScreenUnknown},
	}

	svc := NewScreenService()
	for _, tc := range cases {
		info := svc.Classify(newFakePage(tc.url, ""))
		assert.Equal(t, tc.want, info.ScreenType, "url %s", tc.url)
	}
}

func TestClassifyURLBeatsSelectors(t *testing.T) {
	// страница логина, на которой есть и dashboard-виджет:
	// URL-таблица решает первой
	page := newFakePage("https://visa.example.com/login", "Login")
	page.addElement(".dashboard", &fakeElement{visible: true})

	info := NewScreenService().Classify(page)
	assert.Equal(t, models.ScreenLogin, info.ScreenType)
}

func TestClassifyBySelectorsWhenURLUnknown(t *testing.T) {
	page := newFakePage("https://visa.example.com/x", "")
	page.addElement("input[name='otp']", &fakeElement{visible: true})

	info := NewScreenService().Classify(page)
	assert.Equal(t, models.ScreenOTPVerification, info.ScreenType)
}

func TestCaptchaAndErrorDetectedIndependently(t *testing.T) {
	page := newFakePage("https://visa.example.com/login", "Login")
	page.addElement(".g-recaptcha", &fakeElement{visible: true})
	page.addElement(".error-message", &fakeElement{text: "  Too many requests  ", visible: true})

	info := NewScreenService().Classify(page)
	assert.Equal(t, models.ScreenLogin, info.ScreenType)
	assert.True(t, info.HasCaptcha)
	assert.True(t, info.HasError)
	assert.Equal(t, "Too many requests", info.ErrorMessage)
}

func TestAvailableActionsOnlyVisible(t *testing.T) {
	page := newFakePage("https://visa.example.com/login", "Login")
	page.addElement("button[type='submit']", &fakeElement{visible: true})
	page.addElement(".time-slot", &fakeElement{visible: false})

	info := NewScreenService().Classify(page)
	assert.Contains(t, info.AvailableActions, "login")
	assert.NotContains(t, info.AvailableActions, "select_time")
}

func TestDateSelectionMetadata(t *testing.T) {
	page := newFakePage("https://visa.example.com/calendar", "")
	page.addElement(".available-date", &fakeElement{text: "2026-09-04", visible: true})
	page.addElement(".available-date", &fakeElement{text: "2026-09-11", visible: true})

	info := NewScreenService().Classify(page)
	require.Equal(t, models.ScreenDateSelection, info.ScreenType)
	assert.Equal(t, "2026-09-04,2026-09-11", info.Metadata["available_dates"])
}

func TestNextActionTable(t *testing.T) {
	svc := NewScreenService()

	assert.Equal(t, "login", svc.NextAction(&models.ScreenInfo{ScreenType: models.ScreenLogin}))
	assert.Equal(t, "solve_captcha", svc.NextAction(&models.ScreenInfo{ScreenType: models.ScreenCaptcha}))

	// для терминальных и неизвестных экранов шага нет
	assert.Empty(t, svc.NextAction(&models.ScreenInfo{ScreenType: models.ScreenUnknown}))
	assert.Empty(t, svc.NextAction(&models.ScreenInfo{ScreenType: models.ScreenError}))
	assert.Empty(t, svc.NextAction(&models.ScreenInfo{ScreenType: models.ScreenBlocked}))
	assert.Empty(t, svc.NextAction(&models.ScreenInfo{ScreenType: models.ScreenMaintenance}))
}

func TestStateHelpers(t *testing.T) {
	svc := NewScreenService()
	assert.True(t, svc.IsSuccessState(&models.ScreenInfo{ScreenType: models.ScreenSuccess}))
	assert.True(t, svc.IsErrorState(&models.ScreenInfo{ScreenType: models.ScreenBlocked}))
	assert.False(t, svc.IsErrorState(&models.ScreenInfo{ScreenType: models.ScreenLogin}))
}

func TestHistoryWindowIsBounded(t *testing.T) {
	svc := NewScreenService()
	for i := 0; i < screenHistoryLimit+10; i++ {
		svc.Classify(newFakePage(fmt.Sprintf("https://visa.example.com/page%d", i), ""))
	}

	history := svc.History()
	assert.Len(t, history, screenHistoryLimit)
	assert.NotNil(t, svc.LastScreen())
}
