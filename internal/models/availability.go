package models

import "time"

type DateSlot struct {
	Date        string   `json:"date"`
	DayName     string   `json:"day_name,omitempty"`
	Slots       []string `json:"slots,omitempty"`
	IsPreferred bool     `json:"is_preferred"`
}

type AvailabilityResult struct {
	HasAvailability bool       `json:"has_availability"`
	AvailableDates  []DateSlot `json:"available_dates,omitempty"`
	CheckedAt       time.Time  `json:"checked_at"`
	Location        string     `json:"location,omitempty"`
	Category        string     `json:"category,omitempty"`
	Error           string     `json:"error,omitempty"`
}

func (r AvailabilityResult) TotalSlots() int {
	n := 0
	for _, d := range r.AvailableDates {
		n += len(d.Slots)
	}
	return n
}

func (r AvailabilityResult) EarliestDate() string {
	if len(r.AvailableDates) == 0 {
		return ""
	}
	return r.AvailableDates[0].Date
}
