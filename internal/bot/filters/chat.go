// Package filters решает, какие сообщения бот вообще обрабатывает.
package filters

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// CheckAccess пропускает только личные сообщения от пользователя.
// Мини-приложение открывается из лички, группы и каналы бот игнорирует.
func CheckAccess(message *telego.Message) bool {
	if message == nil {
		return false
	}
	if message.From == nil || message.From.IsBot {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("Сообщение без пользователя (сервисное или от бота)")
		return false
	}
	return message.Chat.Type == telego.ChatTypePrivate
}
