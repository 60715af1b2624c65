package utils

import (
	"errors"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone format")

// NormalizePhone — приводит номер к каноничному виду 7XXXXXXXXXX (11 цифр).
// Принимаем варианты ввода: +7..., 8..., с пробелами/скобками/дефисами.
// Всё остальное — ErrInvalidPhone.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
			// разделители игнорируем
		default:
			return "", ErrInvalidPhone
		}
	}
	d := b.String()

	switch {
	case len(d) == 11 && d[0] == '7':
		return d, nil
	case len(d) == 11 && d[0] == '8':
		// местный формат 8 7XX ... -> 7 7XX ...
		return "7" + d[1:], nil
	case len(d) == 10 && d[0] == '7':
		// без кода страны: 700 123 45 67
		return "7" + d, nil
	}
	return "", ErrInvalidPhone
}
