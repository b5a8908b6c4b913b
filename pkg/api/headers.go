package api

// Заголовки upgrade запроса, которые выставляет gatekeeper
const (
	// HeaderDocumentKey ключ документа, если он не передан в пути
	HeaderDocumentKey = "X-Document-Key"
	// HeaderUserID стабильный идентификатор пользователя
	HeaderUserID = "X-User-Id"
	// HeaderUserName отображаемое имя, base64 от UTF-8
	HeaderUserName = "X-User-Name"
	// HeaderUserImage URL аватара, percent-encoded
	HeaderUserImage = "X-User-Image"
	// HeaderInitialContent начальное содержимое документа, base64
	HeaderInitialContent = "X-Initial-Content"
	// QueryToken параметр с grant токеном для клиентов без доступа к заголовкам
	QueryToken = "token"
)

// HealthResponse ответ GET /api/v1/health
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Documents int    `json:"documents"`
}
