package cli

import (
	"context"
	"errors"
	"fmt"
)

// InsertOptions параметры команды insert
type InsertOptions struct {
	Text string
	// At позиция вставки в UTF-16 единицах; отрицательная означает конец
	At int
}

// RunInsert вставляет текст в документ. Без текста в аргументах он
// читается из stdin (на терминале одна строка).
func (c *Cli) RunInsert(ctx context.Context, rawKey string, opts InsertOptions) error {
	key, err := parseKey(rawKey)
	if err != nil {
		return err
	}

	text := opts.Text
	if text == "" {
		text, err = c.readText()
		if err != nil {
			return err
		}
	}
	if text == "" {
		return errors.New("nothing to insert")
	}

	s, err := c.openDocument(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer s.Close()

	at := opts.At
	if at < 0 || at > utf16Len(s.text) {
		at = utf16Len(s.text)
	}

	if s.plain != nil {
		err = s.plain.Change(at, at, text)
	} else {
		err = s.replica.Insert(at, text)
	}
	if err != nil {
		return fmt.Errorf("failed to send edit: %w", err)
	}

	c.io.Printf("Inserted %d characters at %d\n", utf16Len(text), at)
	return nil
}

func (c *Cli) readText() (string, error) {
	if c.io.IsTerminal() {
		line, err := c.io.ReadInput("Text: ")
		if err != nil {
			return "", fmt.Errorf("failed to read text: %w", err)
		}
		return line, nil
	}
	return c.io.ReadAll()
}
