package api

import "time"

// MessageType дискриминатор JSON сообщений plain-text протокола
type MessageType string

const (
	// TypeInit запрос/ответ инициализации соединения
	TypeInit MessageType = "init"
	// TypeChange правка диапазона текста
	TypeChange MessageType = "change"
	// TypeCursor позиция курсора и выделение
	TypeCursor MessageType = "cursor"
	// TypeCursorLeave уход клиента (только сервер -> клиент)
	TypeCursorLeave MessageType = "cursor-leave"
)

// Change заменяет полуоткрытый диапазон [From, To) строкой Insert.
// Смещения считаются в UTF-16 code units, как в редакторе.
type Change struct {
	Insert string `json:"insert"`
	From   int    `json:"from"`
	To     int    `json:"to"`
}

// Selection диапазон выделения
type Selection struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Message один JSON объект plain-text протокола (один объект на frame).
// Поля опциональны; набор определяется Type.
type Message struct {
	Type         MessageType `json:"type"`
	Content      *string     `json:"content,omitempty"`
	Changes      *Change     `json:"changes,omitempty"`
	Position     *int        `json:"position,omitempty"`
	Selection    *Selection  `json:"selection,omitempty"`
	ConnectionID string      `json:"connectionId,omitempty"`
	UserName     string      `json:"userName,omitempty"`
	UserImage    string      `json:"userImage,omitempty"`
}

// DocumentResponse ответ GET /api/v1/documents/{key}
type DocumentResponse struct {
	LastActivity time.Time `json:"last_activity"`
	Key          string    `json:"key"`
	Mode         string    `json:"mode"`
	Text         string    `json:"text"`
	State        []byte    `json:"state,omitempty"` // закодированное CRDT состояние (base64 в JSON)
	Connections  int       `json:"connections"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
