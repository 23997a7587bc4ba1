package filters

import (
	"testing"

	"github.com/mymmrac/telego"
)

func TestCheckAccess(t *testing.T) {
	user := &telego.User{ID: 1, FirstName: "Оля"}
	tests := []struct {
		name string
		msg  *telego.Message
		want bool
	}{
		{"nil", nil, false},
		{"private", &telego.Message{From: user, Chat: telego.Chat{ID: 1, Type: telego.ChatTypePrivate}}, true},
		{"group", &telego.Message{From: user, Chat: telego.Chat{ID: -5, Type: telego.ChatTypeGroup}}, false},
		{"no sender", &telego.Message{Chat: telego.Chat{ID: -7, Type: telego.ChatTypeChannel}}, false},
		{"bot sender", &telego.Message{From: &telego.User{ID: 2, IsBot: true}, Chat: telego.Chat{ID: 2, Type: telego.ChatTypePrivate}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckAccess(tt.msg); got != tt.want {
				t.Errorf("CheckAccess = %v, want %v", got, tt.want)
			}
		})
	}
}
