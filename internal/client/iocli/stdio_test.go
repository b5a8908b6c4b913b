package iocli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Проверяем что NewStdio возвращает валидный объект
func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	stdio := New(strings.NewReader(""), &out)

	stdio.Println("hello", "world")
	stdio.Printf("test %d %s", 1, "abc")
	_, err := stdio.Write([]byte("!"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\ntest 1 abc!", out.String())
}

func TestReadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "line with newline", input: "user input\n", want: "user input"},
		{name: "last line without newline", input: "  tail  ", want: "tail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			stdio := New(strings.NewReader(tt.input), &out)

			result, err := stdio.ReadInput("Prompt: ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
			assert.Equal(t, "Prompt: ", out.String())
		})
	}
}

func TestReadInput_EOF(t *testing.T) {
	stdio := New(strings.NewReader(""), &bytes.Buffer{})
	_, err := stdio.ReadInput("Prompt: ")
	assert.Error(t, err)
}

func TestReadAll(t *testing.T) {
	stdio := New(strings.NewReader("line one\nline two\n"), &bytes.Buffer{})

	// первая строка уже прочитана, ReadAll отдает остаток
	first, err := stdio.ReadInput("")
	require.NoError(t, err)
	assert.Equal(t, "line one", first)

	rest, err := stdio.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "line two\n", rest)
}

func TestReadPassword_NotTerminal(t *testing.T) {
	stdio := New(strings.NewReader("secret\n"), &bytes.Buffer{})

	assert.False(t, stdio.IsTerminal())
	_, err := stdio.ReadPassword("Secret: ")
	assert.ErrorIs(t, err, ErrNotTerminal)
}
