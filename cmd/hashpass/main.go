// hashpass — утилита для генерации Argon2id хеша пароля администратора.
// Запуск: go run ./cmd/hashpass ваш_пароль
//
// Результат вставьте в .env как ADMIN_PASSWORD_HASH.
package main

import (
	"fmt"
	"os"

	"serotonyl.ru/lootcase-bot/internal/features/admin"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Использование: go run ./cmd/hashpass <пароль>")
		os.Exit(1)
	}

	hash, err := admin.HashPassword(os.Args[1], admin.DefaultParams)
	if err != nil {
		fmt.Printf("Ошибка: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Хеш пароля (вставьте в .env как ADMIN_PASSWORD_HASH):")
	fmt.Println(hash)
}
