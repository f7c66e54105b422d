//go:build ignore

// generate_key.go — утилита для генерации BOOST_ENCRYPTION_KEY.
// Запуск: go run scripts/generate_key.go
//
// Ключ шифрует пароли аккаунтов. После смены ключа старые пароли
// не расшифруются, аккаунты придётся добавить заново.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/koeurnDev/EZA-POST-sub000/internal/features/accounts"
)

func main() {
	// 32 случайных байта
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		fmt.Printf("Ошибка генерации ключа: %v\n", err)
		os.Exit(1)
	}
	key := base64.RawURLEncoding.EncodeToString(raw)

	// Проверяем, что ключ принимается шифратором
	c, err := accounts.NewCipher(key)
	if err != nil {
		fmt.Printf("Ключ не подошёл: %v\n", err)
		os.Exit(1)
	}
	sealed, err := c.Encrypt("check")
	if err != nil {
		fmt.Printf("Ошибка шифрования: %v\n", err)
		os.Exit(1)
	}
	if plain, err := c.Decrypt(sealed); err != nil || plain != "check" {
		fmt.Println("Ключ не прошёл проверку шифрования")
		os.Exit(1)
	}

	fmt.Println("Ключ шифрования (вставьте в .env как BOOST_ENCRYPTION_KEY):")
	fmt.Println(key)
}
