package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("LEADDESK_TEST_MODE", "1")
		if os.Getenv("NOTIFY_ENDPOINT") == "" {
			_ = os.Setenv("NOTIFY_ENDPOINT", "http://127.0.0.1:0")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
