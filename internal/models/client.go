package models

type Client struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	Email          string `json:"email"`
	TelegramChatID int64  `json:"telegram_chat_id,omitempty"`
}
