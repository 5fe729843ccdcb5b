package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarPage(dates ...string) *fakePage {
	page := newFakePage("https://visa.example.com/calendar", "Calendar")
	for _, d := range dates {
		page.addElement("td.available:not(.disabled)", &fakeElement{
			attrs:   map[string]string{"data-date": d},
			visible: true,
		})
	}
	return page
}

func TestNoAvailabilityPhraseShortCircuits(t *testing.T) {
	page := calendarPage("2026-09-04")
	page.bodyText = "Sorry, no appointment slots are currently available for this center."

	result := NewAvailabilityService(nil, nil).Check(page, "Paris", "short_stay")
	assert.False(t, result.HasAvailability)
	assert.Empty(t, result.AvailableDates)
	assert.Empty(t, result.Error)
}

func TestCheckCollectsDatesFromAttribute(t *testing.T) {
	page := calendarPage("2026-09-04", "2026-09-11")

	result := NewAvailabilityService(nil, nil).Check(page, "Paris", "short_stay")
	require.True(t, result.HasAvailability)
	require.Len(t, result.AvailableDates, 2)
	assert.Equal(t, "2026-09-04", result.EarliestDate())
	// 2026-09-04 — пятница
	assert.Equal(t, "Friday", result.AvailableDates[0].DayName)
}

func TestCheckFallsBackToCellText(t *testing.T) {
	page := newFakePage("https://visa.example.com/calendar", "")
	page.addElement("td.available:not(.disabled)", &fakeElement{
		text:    "  2026-09-07  ",
		visible: true,
	})

	result := NewAvailabilityService(nil, nil).Check(page, "Paris", "short_stay")
	require.Len(t, result.AvailableDates, 1)
	assert.Equal(t, "2026-09-07", result.AvailableDates[0].Date)
	assert.Equal(t, "Monday", result.AvailableDates[0].DayName)
}

func TestEmptyPreferencesMeanEverythingPreferred(t *testing.T) {
	page := calendarPage("2026-09-04", "2026-09-07")

	result := NewAvailabilityService(nil, nil).Check(page, "Paris", "short_stay")
	for _, d := range result.AvailableDates {
		assert.True(t, d.IsPreferred)
	}
}

func TestPreferredDayMatching(t *testing.T) {
	// 2026-09-04 — пятница, 2026-09-07 — понедельник
	page := calendarPage("2026-09-04", "2026-09-07")

	svc := NewAvailabilityService([]string{"Friday"}, nil)
	result := svc.Check(page, "Paris", "short_stay")
	require.Len(t, result.AvailableDates, 2)
	assert.True(t, result.AvailableDates[0].IsPreferred)
	assert.False(t, result.AvailableDates[1].IsPreferred)
	assert.True(t, svc.HasPreferred(result))
}

func TestPreferredExactDateMatching(t *testing.T) {
	page := calendarPage("2026-09-04", "2026-09-07")

	svc := NewAvailabilityService(nil, []string{"2026-09-07"})
	result := svc.Check(page, "Paris", "short_stay")
	assert.False(t, result.AvailableDates[0].IsPreferred)
	assert.True(t, result.AvailableDates[1].IsPreferred)
}

func TestTimeSlotsAttachToFirstDate(t *testing.T) {
	page := calendarPage("2026-09-04")
	page.addElement(".time-slot:not(.disabled)", &fakeElement{text: "09:30", visible: true})
	page.addElement(".time-slot:not(.disabled)", &fakeElement{text: "14:00", visible: true})

	result := NewAvailabilityService(nil, nil).Check(page, "Paris", "short_stay")
	require.True(t, result.HasAvailability)
	assert.Equal(t, []string{"09:30", "14:00"}, result.AvailableDates[0].Slots)
	assert.Equal(t, 2, result.TotalSlots())
}

func TestCheckMonthsPagesForward(t *testing.T) {
	page := calendarPage("2026-09-04")
	page.addElement(".next-month", &fakeElement{visible: true})

	result := NewAvailabilityService(nil, nil).CheckMonths(page, 3, "Paris", "short_stay")
	assert.True(t, result.HasAvailability)
	// та же страница видна трижды: текущий месяц + два перелистывания
	assert.Len(t, result.AvailableDates, 3)

	next, _ := page.Query(".next-month")
	assert.Equal(t, 2, next.(*fakeElement).clicked)
}

func TestCheckMonthsStopsWithoutNextControl(t *testing.T) {
	page := calendarPage("2026-09-04")

	result := NewAvailabilityService(nil, nil).CheckMonths(page, 4, "Paris", "short_stay")
	assert.Len(t, result.AvailableDates, 1)
}

// flakyCalendar роняет чтение body на заданном по счёту обращении.
type flakyCalendar struct {
	*fakePage
	bodyReads int
	failOn    int
}

func (p *flakyCalendar) InnerText(selector string) (string, error) {
	if selector == "body" {
		p.bodyReads++
		if p.bodyReads == p.failOn {
			return "", errors.New("transient read failure")
		}
	}
	return p.fakePage.InnerText(selector)
}

func TestCheckMonthsSurvivesMidMonthFailure(t *testing.T) {
	base := calendarPage("2026-09-04")
	base.addElement(".next-month", &fakeElement{visible: true})
	page := &flakyCalendar{fakePage: base, failOn: 2}

	// второй месяц не читается, но первый и третий должны попасть в итог
	result := NewAvailabilityService(nil, nil).CheckMonths(page, 3, "Paris", "short_stay")
	assert.True(t, result.HasAvailability)
	assert.Len(t, result.AvailableDates, 2)
	assert.Empty(t, result.Error)
}

func TestCheckMonthsKeepsErrorWhenNothingFound(t *testing.T) {
	base := newFakePage("https://visa.example.com/calendar", "Calendar")
	base.addElement(".next-month", &fakeElement{visible: true})
	page := &flakyCalendar{fakePage: base, failOn: 2}

	result := NewAvailabilityService(nil, nil).CheckMonths(page, 3, "Paris", "short_stay")
	assert.False(t, result.HasAvailability)
	assert.Contains(t, result.Error, "transient read failure")
}
