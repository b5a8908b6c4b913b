package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// RunCat печатает текущее содержимое документа
func (c *Cli) RunCat(ctx context.Context, rawKey string) error {
	key, err := parseKey(rawKey)
	if err != nil {
		return err
	}

	s, err := c.openDocument(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer s.Close()

	c.io.Printf("%s", s.text)
	if s.text != "" && s.text[len(s.text)-1] != '\n' && c.io.IsTerminal() {
		c.io.Println()
	}
	return nil
}

// RunInfo печатает снимок документа из API, не открывая сессию
func (c *Cli) RunInfo(ctx context.Context, rawKey string) error {
	key, err := parseKey(rawKey)
	if err != nil {
		return err
	}

	doc, err := c.client.GetDocument(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	c.io.Printf("Key:           %s\n", doc.Key)
	c.io.Printf("Mode:          %s\n", doc.Mode)
	c.io.Printf("Connections:   %d\n", doc.Connections)
	c.io.Printf("Text:          %s\n", humanize.Bytes(uint64(len(doc.Text))))
	if len(doc.State) > 0 {
		c.io.Printf("CRDT state:    %s\n", humanize.Bytes(uint64(len(doc.State))))
	}
	if !doc.LastActivity.IsZero() {
		c.io.Printf("Last activity: %s (%s)\n", doc.LastActivity.Format(time.RFC3339), humanize.Time(doc.LastActivity))
	}
	return nil
}
