package formatters

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DigitsOnly strips everything except ASCII digits from the input.
func DigitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatDate masks raw keyboard input into dd.mm.yyyy, inserting the dots
// as soon as enough digits are present. Partial input yields partial output
// and anything past 8 digits is dropped.
func FormatDate(value string) string {
	digits := DigitsOnly(value)
	if len(digits) == 0 {
		return ""
	}

	formatted := digits[:min(2, len(digits))]
	if len(digits) >= 3 {
		formatted += "." + digits[2:min(4, len(digits))]
	}
	if len(digits) >= 5 {
		formatted += "." + digits[4:min(8, len(digits))]
	}
	return formatted
}

// FormatPhone masks a local phone number as "00 000-00-00". The 998 country
// prefix is never part of the stored value.
func FormatPhone(value string) string {
	digits := DigitsOnly(value)
	if len(digits) == 0 {
		return ""
	}

	formatted := digits[:min(2, len(digits))]
	if len(digits) >= 3 {
		formatted += " " + digits[2:min(5, len(digits))]
	}
	if len(digits) >= 6 {
		formatted += "-" + digits[5:min(7, len(digits))]
	}
	if len(digits) >= 8 {
		formatted += "-" + digits[7:min(9, len(digits))]
	}
	return formatted
}

// NormalizePhone produces the fully qualified wire form the partner API
// expects: the 998 country code followed by the bare digits.
func NormalizePhone(value string) string {
	return "998" + DigitsOnly(value)
}

// CalculateAge parses a dd.mm.yyyy birthdate and returns full years relative
// to now. The second return is false when the input does not parse to a
// plausible date or the computed age would be negative.
func CalculateAge(birthdate string, now time.Time) (int, bool) {
	parts := strings.Split(birthdate, ".")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return 0, false
	}

	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 {
		return 0, false
	}

	age := now.Year() - year
	if int(now.Month()) < month || (int(now.Month()) == month && now.Day() < day) {
		age--
	}
	if age < 0 {
		return 0, false
	}
	return age, true
}

// IsAdult reports whether the birthdate belongs to someone 18 or older.
// Unparsable input counts as not adult rather than an error.
func IsAdult(birthdate string, now time.Time) bool {
	age, ok := CalculateAge(birthdate, now)
	return ok && age >= 18
}

// YearWord returns the Russian unit word matching the grammatical number
// class of the age: 1 -> "год", 2-4 -> "года", everything else (including
// the 11-14 teens) -> "лет".
func YearWord(age int) string {
	lastTwo := age % 100
	if lastTwo >= 11 && lastTwo <= 14 {
		return "лет"
	}
	switch age % 10 {
	case 1:
		return "год"
	case 2, 3, 4:
		return "года"
	}
	return "лет"
}

// FormatAges renders a list of ages grouped by unit word, e.g.
// "1 год, 2, 3 года". When the ages span more than one grammatical class the
// whole list collapses to a single "лет" suffix, matching how the selection
// screen has always displayed mixed groups.
func FormatAges(ages []int) string {
	if len(ages) == 0 {
		return ""
	}

	groups := map[string][]int{}
	for _, age := range ages {
		word := YearWord(age)
		groups[word] = append(groups[word], age)
	}

	var parts []string
	for _, word := range []string{"год", "года", "лет"} {
		if len(groups[word]) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", joinInts(groups[word]), word))
	}

	if len(parts) > 1 {
		return fmt.Sprintf("%s лет", joinInts(ages))
	}
	return parts[0]
}

func joinInts(values []int) string {
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = strconv.Itoa(v)
	}
	return strings.Join(strs, ", ")
}

// CleanName strips apostrophe variants and anything that is not a letter,
// space or hyphen. Lookup responses in the local script carry modifier
// letters that the partner APIs reject.
func CleanName(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r == '\'', r == '’', r == '`', r == 'ʻ', r == 'ʼ':
			continue
		case unicode.IsLetter(r), r == ' ', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// ResolveName picks the Latin-script name when present, falling back to the
// cleaned local-script one.
func ResolveName(eng, local string) string {
	if trimmed := strings.TrimSpace(eng); trimmed != "" {
		return trimmed
	}
	return CleanName(local)
}
