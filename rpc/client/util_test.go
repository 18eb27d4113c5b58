package client

import (
	"os"
	"time"
)

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// waitFor retries fn until it succeeds or a second has passed
func waitFor(fn func() error) error {
	deadline := time.Now().Add(time.Second)
	for {
		err := fn()
		if err == nil || time.Now().After(deadline) {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
}
