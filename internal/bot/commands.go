package bot

import "strings"

// ParseCommand разбирает "/cmd@botname arg1 arg2" на команду и аргументы.
// Команда приводится к нижнему регистру, суффикс @botname отбрасывается.
func ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}

	parts := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(parts) == 0 {
		return "", nil, false
	}

	cmd, _, _ := strings.Cut(parts[0], "@")
	if cmd == "" {
		return "", nil, false
	}
	return strings.ToLower(cmd), parts[1:], true
}
