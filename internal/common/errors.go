// Package common — errors.go определяет доменные ошибки,
// которые используются во всех модулях сервера.
// Хранилища и сервисы оборачивают их через %w, а HTTP-слой и бот
// различают их через errors.Is и отдают клиенту понятный код.
package common

import "errors"

// Ошибки запроса
var (
	// ErrValidation — не хватает обязательных полей или они некорректны
	ErrValidation = errors.New("некорректный запрос")
	// ErrUnauthorized — неверный пароль администратора
	ErrUnauthorized = errors.New("доступ запрещён")
	// ErrTooManyAttempts — слишком много неверных паролей подряд
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите")
)

// Ошибки аккаунтов и баланса
var (
	// ErrAccountNotFound — пользователь не найден в базе
	ErrAccountNotFound = errors.New("пользователь не найден")
	// ErrInsufficientFunds — недостаточно монет на счёте
	ErrInsufficientFunds = errors.New("недостаточно монет на счёте")
)

// Ошибки каталога
var (
	// ErrCaseNotFound — кейса с таким id нет в каталоге
	ErrCaseNotFound = errors.New("кейс не найден")
	// ErrInvalidCatalog — битая таблица призов (пустая или с нулевым весом).
	// В нормальной работе не встречается: каталог проверяется при старте.
	ErrInvalidCatalog = errors.New("некорректный каталог")
)

// Ошибки сессий открытия
var (
	// ErrSessionNotFound — токена нет или он уже использован
	ErrSessionNotFound = errors.New("сессия открытия не найдена")
	// ErrSessionMismatch — токен выписан на другой аккаунт или кейс
	ErrSessionMismatch = errors.New("сессия открытия не совпадает с запросом")
	// ErrSessionExpired — сессия старше TTL
	ErrSessionExpired = errors.New("сессия открытия истекла")
)

// Ошибки инфраструктуры
var (
	// ErrStoreUnavailable — хранилище не ответило, изменения откатились
	ErrStoreUnavailable = errors.New("хранилище недоступно")
)
