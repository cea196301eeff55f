// Package validation содержит функции валидации входных данных.
package validation

import "strings"

// NormalizePhone приводит телефонный номер к виду из одних цифр с
// необязательным ведущим «+». Пробелы, дефисы и скобки отбрасываются.
// Возвращает false, если после нормализации в номере не 10–15 цифр.
func NormalizePhone(raw string) (string, bool) {
	var sb strings.Builder

	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '+' && i == 0:
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// разделители допустимы, но не сохраняются
		default:
			return "", false
		}
	}

	normalized := sb.String()
	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < 10 || len(digits) > 15 {
		return "", false
	}

	return normalized, true
}
