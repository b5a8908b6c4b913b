package handlers

import (
	"context"

	"github.com/iudanet/gophcollab/internal/models"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// IdentityKey ключ для хранения проверенной identity в контексте
	IdentityKey contextKey = "identity"
	// DocumentKeyKey ключ для хранения ключа документа из grant
	DocumentKeyKey contextKey = "document_key"
)

// WithGrant кладет в контекст ключ документа и identity из проверенного grant
func WithGrant(ctx context.Context, key models.DocumentKey, identity models.Identity) context.Context {
	ctx = context.WithValue(ctx, DocumentKeyKey, key)
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity извлекает identity из контекста запроса
func GetIdentity(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(models.Identity)
	return identity, ok
}

// GetDocumentKey извлекает ключ документа из контекста запроса
func GetDocumentKey(ctx context.Context) (models.DocumentKey, bool) {
	key, ok := ctx.Value(DocumentKeyKey).(models.DocumentKey)
	return key, ok && key != ""
}
