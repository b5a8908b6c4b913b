// Package iocli abstracts the terminal of the command line client.
package iocli

//go:generate moq -out io_mock.go . IO

// IO ввод/вывод CLI: печать результатов, чтение текста и секретов
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	Write(p []byte) (n int, err error)
	// ReadInput читает одну строку после приглашения
	ReadInput(prompt string) (string, error)
	// ReadPassword читает строку без эха; только на терминале
	ReadPassword(prompt string) (string, error)
	// ReadAll читает весь ввод до EOF
	ReadAll() (string, error)
	// IsTerminal сообщает, подключен ли ввод к терминалу
	IsTerminal() bool
}
