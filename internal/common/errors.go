// Package common — errors.go определяет ошибки,
// которые используются во всех модулях сервиса.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отдавать клиенту понятный HTTP-статус.
package common

import "errors"

// Ошибки кредитов
var (
	// ErrInsufficientCredits — на балансе меньше кредитов, чем нужно
	ErrInsufficientCredits = errors.New("Insufficient credits")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrInvalidTxType — тип транзакции не подходит для операции
	ErrInvalidTxType = errors.New("недопустимый тип транзакции")
)

// Ошибки аккаунтов
var (
	// ErrAccountNotFound — аккаунт не найден или принадлежит другому пользователю
	ErrAccountNotFound = errors.New("аккаунт не найден")
	// ErrNoAvailableAccounts — все аккаунты забанены, на кулдауне или исчерпали лимит
	ErrNoAvailableAccounts = errors.New("No available accounts")
	// ErrCredentialsRequired — не указан логин или пароль
	ErrCredentialsRequired = errors.New("нужны username и password")
	// ErrCookiesRequired — импорт без username или cookies
	ErrCookiesRequired = errors.New("нужны username и массив cookies")
)

// Ошибки буста
var (
	// ErrBoostNotFound — буст поста не найден
	ErrBoostNotFound = errors.New("буст не найден")
	// ErrAlreadyBoosted — у поста уже есть активный или завершённый буст
	ErrAlreadyBoosted = errors.New("пост уже бустится")
	// ErrPostNotFound — пост не найден или принадлежит другому пользователю
	ErrPostNotFound = errors.New("пост не найден")
	// ErrInvalidRule — правило не прошло валидацию
	ErrInvalidRule = errors.New("некорректное правило буста")
	// ErrQueueClosed — очередь остановлена, задачи больше не принимаются
	ErrQueueClosed = errors.New("очередь буста остановлена")
)

// Ошибки автоматизации
var (
	// ErrPoolClosed — пул сессий уже остановлен
	ErrPoolClosed = errors.New("пул сессий остановлен")
)
