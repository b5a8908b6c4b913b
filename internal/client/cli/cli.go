// Package cli implements the commands of the command line client.
package cli

import (
	"context"
	"fmt"
	"unicode/utf16"

	"github.com/iudanet/gophcollab/internal/client/collab"
	"github.com/iudanet/gophcollab/internal/client/iocli"
	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/validation"
)

// Cli выполняет команды клиента против одного сервера
type Cli struct {
	io     iocli.IO
	client *collab.Client
	mode   models.Mode
}

// New создает CLI. mode должен совпадать с режимом сервера.
func New(io iocli.IO, client *collab.Client, mode models.Mode) (*Cli, error) {
	switch mode {
	case models.ModePlain, models.ModeCRDT:
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	return &Cli{io: io, client: client, mode: mode}, nil
}

func parseKey(raw string) (models.DocumentKey, error) {
	if err := validation.ValidateDocumentKey(raw); err != nil {
		return "", fmt.Errorf("invalid document key: %w", err)
	}
	return models.DocumentKey(raw), nil
}

// openDocument подключается и возвращает текущее содержимое документа
func (c *Cli) openDocument(ctx context.Context, key models.DocumentKey) (*docSession, error) {
	if c.mode == models.ModePlain {
		s, err := c.client.OpenPlain(ctx, key)
		if err != nil {
			return nil, err
		}
		content, err := s.Init(ctx, nil)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		return &docSession{plain: s, text: content}, nil
	}

	s, err := c.client.OpenCRDT(ctx, key, collab.CRDTOptions{})
	if err != nil {
		return nil, err
	}
	if err := s.WaitSynced(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &docSession{replica: s, text: s.Text()}, nil
}

// docSession одна из двух сессий и снимок текста на момент подключения
type docSession struct {
	plain   *collab.PlainSession
	replica *collab.CRDTSession
	text    string
}

func (s *docSession) Close() error {
	if s.plain != nil {
		return s.plain.Close()
	}
	return s.replica.Close()
}

// utf16Len длина строки в единицах, которыми адресуются правки
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
