package crypto

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
)

// storageSalt соль ключа хранилища. Секрет один на сервер, поэтому соль
// фиксирована: тот же секрет после рестарта дает тот же ключ.
var storageSalt = []byte("gophcollab/storage/v1")

// DeriveStorageKey derives the content key from the configured secret
// with Argon2id.
func DeriveStorageKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("storage secret cannot be empty")
	}
	return argon2.IDKey([]byte(secret), storageSalt, Argon2Time, Argon2Memory, Argon2Threads, KeySize), nil
}
