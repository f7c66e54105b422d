// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: случайные паузы, работа с календарными днями, форматирование.
package common

import (
	"context"
	"math/rand/v2"
	"time"
)

// RandFunc возвращает псевдослучайное число в [0, 1).
// Сервисы принимают её извне, чтобы тесты могли зафиксировать «случайность».
type RandFunc func() float64

// DefaultRand — глобальный потокобезопасный генератор.
func DefaultRand() float64 {
	return rand.Float64()
}

// Delay приостанавливает выполнение на d.
// Возвращает ошибку контекста, если ожидание прервано.
// В тестах подменяется на функцию без реального сна.
type Delay func(ctx context.Context, d time.Duration) error

// Sleep — реальная реализация Delay.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Between возвращает случайную длительность из [min, max).
//
// Пример:
//
//	common.Between(rnd, 3*time.Second, 8*time.Second) → 5.42s
func Between(rnd RandFunc, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rnd()*float64(max-min))
}

// Intn возвращает случайное целое из [0, n).
func Intn(rnd RandFunc, n int) int {
	if n <= 1 {
		return 0
	}
	i := int(rnd() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Shuffle перемешивает срез на месте (Фишер — Йейтс).
func Shuffle[T any](rnd RandFunc, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := Intn(rnd, i+1)
		items[i], items[j] = items[j], items[i]
	}
}

// SameDay сообщает, приходятся ли два момента на один календарный день
// в часовом поясе b.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется в уведомлениях.
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}
