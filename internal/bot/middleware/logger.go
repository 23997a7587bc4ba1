// Package middleware содержит промежуточные обработчики бота:
// логирование апдейтов и восстановление после паники.
package middleware

import (
	"unicode/utf8"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

const maxLoggedText = 50

// LogMessage логирует входящее сообщение на уровне debug.
// Пишет user_id, chat_id, username и первые 50 символов текста.
func LogMessage(message *telego.Message) {
	if message == nil {
		return
	}

	fields := log.Fields{
		"chat_id": message.Chat.ID,
		"text":    truncate(message.Text, maxLoggedText),
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
		fields["username"] = message.From.Username
	}
	log.WithFields(fields).Debug("Входящее сообщение")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
