package documents

import "github.com/matheus3301/chatroom/internal/config"

func configFor(backend string) config.DocumentsConfig {
	return config.DocumentsConfig{Backend: backend}
}
