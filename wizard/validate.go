package wizard

import (
	"time"

	"go-policy-wizard/formatters"
	"go-policy-wizard/models"
)

// User-facing messages. The storefront is Russian-language; the texts match
// what the web client has always shown.
const (
	MsgSelectCountry      = "Выберите хотя бы одну страну"
	MsgTooManyCountries   = "Максимум 6 стран"
	MsgAddTraveler        = "Добавьте хотя бы одного туриста"
	MsgTooManyTravelers   = "Максимум 6 туристов"
	MsgTravelerBirthdates = "Введите корректные даты рождения для всех туристов"
	MsgSelectStartDate    = "Выберите дату отправления"
	MsgSelectEndDate      = "Выберите дату возвращения"
	MsgBadDateRange       = "Дата возвращения не может быть раньше даты отправления"

	MsgEnterBirthdate      = "Введите дату рождения"
	MsgEnterPassportSeries = "Введите серию паспорта"
	MsgEnterPassportNumber = "Введите номер паспорта"
	MsgAwaitingLookup      = "Заполняется автоматически после поиска по паспорту и дате рождения"
	MsgEnterLastName       = "Введите фамилию"
	MsgEnterFirstName      = "Введите имя"
	MsgEnterPhone          = "Введите номер телефона"
	MsgPurchaserAdult      = "Покупатель должен быть старше 18 лет"

	MsgLookupFailed = "Введите корректные данные"

	MsgNoOffers     = "Полисы не найдены. Попробуйте изменить параметры."
	MsgSearchFailed = "Ошибка при поиске полисов. Попробуйте еще раз."

	MsgPolicyIdMissing = "ID полиса не найден"
	MsgNotPaidYet      = "Оплата ещё не поступила. Попробуйте позже."
	MsgIssueFallback   = "Ошибка выпуска полиса"
)

// FieldErrors maps field name to message for one person record.
type FieldErrors map[string]string

// ValidationResult aggregates per-record field errors keyed by record key
// ("tourist-<index>" or "purchaser").
type ValidationResult struct {
	Valid  bool                   `json:"valid"`
	Errors map[string]FieldErrors `json:"errors,omitempty"`
}

func (r *ValidationResult) add(record, field, message string) {
	if r.Errors == nil {
		r.Errors = map[string]FieldErrors{}
	}
	if r.Errors[record] == nil {
		r.Errors[record] = FieldErrors{}
	}
	if _, exists := r.Errors[record][field]; !exists {
		r.Errors[record][field] = message
	}
	r.Valid = false
}

// validatePersonBase covers the fields every traveler and purchaser needs:
// complete birthdate, passport series and number, and a name appropriate for
// the residency. An empty resident full name is reported as awaiting lookup
// rather than bad input, because the user cannot type it in.
func validatePersonBase(r *ValidationResult, record string, p models.Person) {
	if len(p.Birthdate) < 10 {
		r.add(record, "birthdate", MsgEnterBirthdate)
	}
	if len(p.PassportSeries) < 2 {
		r.add(record, "passportSeries", MsgEnterPassportSeries)
	}
	if len(p.PassportNumber) < 7 {
		r.add(record, "passportNumber", MsgEnterPassportNumber)
	}

	if p.IsResident() {
		if len(p.FullName) < 2 {
			r.add(record, "fullName", MsgAwaitingLookup)
		}
	} else {
		if len(p.LastName) < 2 {
			r.add(record, "lastName", MsgEnterLastName)
		}
		if len(p.FirstName) < 2 {
			r.add(record, "firstName", MsgEnterFirstName)
		}
	}
}

// validatePurchaserFields adds the purchaser-role requirements: a complete
// formatted phone and an adult birthdate.
func validatePurchaserFields(r *ValidationResult, record string, p models.Person, now time.Time) {
	if len(p.Phone) < 12 {
		r.add(record, "phone", MsgEnterPhone)
	}
	if !formatters.IsAdult(p.Birthdate, now) {
		r.add(record, "birthdate", MsgPurchaserAdult)
	}
}

// validateWithPurchaserAmongTravelers is the schema used when traveler #1
// doubles as the purchaser: only that record carries the purchaser-role
// requirements and no separate purchaser exists.
func validateWithPurchaserAmongTravelers(travelers []models.Person, now time.Time) ValidationResult {
	result := ValidationResult{Valid: true}
	for i, traveler := range travelers {
		record := travelerKey(i)
		validatePersonBase(&result, record, traveler)
		if i == 0 {
			validatePurchaserFields(&result, record, traveler, now)
		}
	}
	return result
}

// validateWithSeparatePurchaser is the schema used when the contracting
// party is not traveling: travelers are validated plainly and the purchaser
// record carries the phone and adulthood requirements.
func validateWithSeparatePurchaser(travelers []models.Person, purchaser *models.Person, now time.Time) ValidationResult {
	result := ValidationResult{Valid: true}
	for i, traveler := range travelers {
		validatePersonBase(&result, travelerKey(i), traveler)
	}

	if purchaser == nil {
		result.add(purchaserKey, "birthdate", MsgEnterBirthdate)
		result.add(purchaserKey, "passportSeries", MsgEnterPassportSeries)
		result.add(purchaserKey, "passportNumber", MsgEnterPassportNumber)
		result.add(purchaserKey, "phone", MsgEnterPhone)
		return result
	}

	validatePersonBase(&result, purchaserKey, *purchaser)
	validatePurchaserFields(&result, purchaserKey, *purchaser, now)
	return result
}
