// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование чисел и сумм.
package common

import (
	"fmt"
)

// PluralizeCoins возвращает правильную форму слова «монета» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "монета" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "монеты" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "монет" (0, 5-20, 25-30, 100, ...)
func PluralizeCoins(n int64) string {
	return pluralize(n, "монета", "монеты", "монет")
}

// PluralizeCases возвращает форму слова «кейс».
func PluralizeCases(n int64) string {
	return pluralize(n, "кейс", "кейса", "кейсов")
}

func pluralize(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	// Единственное число: 1, 21, 31, 101 (но НЕ 11, 111)
	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	// Малое множественное: 2-4, 22-24, 32-34 (но НЕ 12-14)
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// FormatBalance форматирует баланс в читабельную строку.
// Пример: FormatBalance(2350) → "2 350 монет"
func FormatBalance(balance int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(balance), PluralizeCoins(balance))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
