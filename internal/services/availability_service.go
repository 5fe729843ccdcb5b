package services

import (
	"log"
	"strings"
	"time"

	"visaradar/internal/browser"
	"visaradar/internal/models"
	"visaradar/internal/utils"
)

// Фразы "мест нет" на странице — достаточное основание закончить проверку
// без разбора календаря.
var noAvailabilityPhrases = []string{
	"no appointment slots are currently available",
	"no appointments available",
	"randevu bulunmamaktadır",
	"uygun randevu bulunamadı",
	"şu anda müsait randevu yok",
	"kontenjan dolu",
}

var dateCellSelectors = "td.available:not(.disabled), .available-date, .calendar-day.available"

var timeSlotSelectors = ".time-slot:not(.disabled), .slot.available"

var nextMonthSelectors = []string{".next-month", "[aria-label='Next month']", "button.calendar-next"}

var dateLayouts = []string{"2006-01-02", "02.01.2006", "02/01/2006", "2 January 2006"}

// AvailabilityService разбирает экран выбора даты и сводит его к
// AvailabilityResult. Сервис без состояния, одну копию можно делить
// между сканерами.
type AvailabilityService struct {
	preferredDays  []string
	preferredDates []string
}

// Пустые списки предпочтений означают "подходит всё".
func NewAvailabilityService(preferredDays, preferredDates []string) *AvailabilityService {
	return &AvailabilityService{
		preferredDays:  preferredDays,
		preferredDates: preferredDates,
	}
}

// Check — одна проверка текущего месяца. Ошибки чтения страницы не
// роняют сканер: возвращается результат с заполненным Error.
func (s *AvailabilityService) Check(page browser.Page, location, category string) *models.AvailabilityResult {
	result := &models.AvailabilityResult{
		CheckedAt: time.Now(),
		Location:  location,
		Category:  category,
	}

	body, err := page.InnerText("body")
	if err != nil {
		result.Error = "read page: " + err.Error()
		return result
	}
	if hasNoAvailabilityPhrase(body) {
		return result
	}

	cells, err := page.QueryAll(dateCellSelectors)
	if err != nil {
		result.Error = "query dates: " + err.Error()
		return result
	}

	for _, cell := range cells {
		slot, ok := s.parseDateCell(cell)
		if !ok {
			continue
		}
		result.AvailableDates = append(result.AvailableDates, slot)
	}

	if len(result.AvailableDates) > 0 {
		result.HasAvailability = true
		s.collectTimeSlots(page, result)
		log.Printf("[availability][check] %s/%s: %d dates, %d slots",
			location, category, len(result.AvailableDates), result.TotalSlots())
	}
	return result
}

func hasNoAvailabilityPhrase(body string) bool {
	lower := strings.ToLower(body)
	for _, phrase := range noAvailabilityPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// parseDateCell: атрибут data-date надёжнее текста ячейки, текст — запасной
// вариант. Ячейка без того и другого пропускается.
func (s *AvailabilityService) parseDateCell(cell browser.Element) (models.DateSlot, bool) {
	date, err := cell.GetAttribute("data-date")
	if err != nil || strings.TrimSpace(date) == "" {
		text, err := cell.TextContent()
		if err != nil {
			return models.DateSlot{}, false
		}
		date = utils.CleanText(text)
	}
	date = strings.TrimSpace(date)
	if date == "" {
		return models.DateSlot{}, false
	}

	slot := models.DateSlot{Date: date}
	if t, ok := parseDate(date); ok {
		slot.DayName = t.Weekday().String()
	}
	slot.IsPreferred = s.isPreferred(slot)
	return slot, true
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *AvailabilityService) isPreferred(slot models.DateSlot) bool {
	if len(s.preferredDays) == 0 && len(s.preferredDates) == 0 {
		return true
	}
	for _, day := range s.preferredDays {
		if strings.EqualFold(day, slot.DayName) {
			return true
		}
	}
	for _, date := range s.preferredDates {
		if date == slot.Date {
			return true
		}
	}
	return false
}

// collectTimeSlots снимает видимые тайм-слоты текущего экрана и вешает их
// на первую дату: сайт показывает часы только после выбора дня.
func (s *AvailabilityService) collectTimeSlots(page browser.Page, result *models.AvailabilityResult) {
	elements, err := page.QueryAll(timeSlotSelectors)
	if err != nil || len(elements) == 0 {
		return
	}
	var slots []string
	for _, el := range elements {
		text, err := el.TextContent()
		if err != nil {
			continue
		}
		if t := utils.CleanText(text); t != "" {
			slots = append(slots, t)
		}
	}
	if len(slots) > 0 && len(result.AvailableDates) > 0 {
		result.AvailableDates[0].Slots = slots
	}
}

// CheckMonths проверяет текущий и до months-1 следующих месяцев,
// листая календарь вперёд. Отсутствие кнопки "следующий месяц"
// заканчивает обход без ошибки. Сбой на одном месяце не прерывает
// обход остальных: ошибка запоминается, обход идёт дальше.
func (s *AvailabilityService) CheckMonths(page browser.Page, months int, location, category string) *models.AvailabilityResult {
	combined := s.Check(page, location, category)

	for i := 1; i < months; i++ {
		if !clickNextMonth(page) {
			break
		}
		if err := page.WaitForLoad(); err != nil {
			combined.Error = "wait next month: " + err.Error()
			continue
		}
		next := s.Check(page, location, category)
		if next.Error != "" {
			combined.Error = next.Error
			continue
		}
		combined.AvailableDates = append(combined.AvailableDates, next.AvailableDates...)
		if next.HasAvailability {
			combined.HasAvailability = true
		}
	}
	// найденные даты перевешивают ошибку одного из месяцев
	if combined.HasAvailability {
		combined.Error = ""
	}
	return combined
}

func clickNextMonth(page browser.Page) bool {
	for _, sel := range nextMonthSelectors {
		el, err := page.Query(sel)
		if err != nil || el == nil {
			continue
		}
		if visible, err := el.IsVisible(); err != nil || !visible {
			continue
		}
		if err := el.Click(); err == nil {
			return true
		}
	}
	return false
}

// HasPreferred — есть ли среди найденных дат хотя бы одна предпочитаемая.
func (s *AvailabilityService) HasPreferred(result *models.AvailabilityResult) bool {
	for _, d := range result.AvailableDates {
		if d.IsPreferred {
			return true
		}
	}
	return false
}
