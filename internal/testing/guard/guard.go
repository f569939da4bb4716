// Package guard forces test mode for any package that imports it, so
// binaries built during tests never start servers or workers.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("STOCKS_TEST_MODE") == "" {
			_ = os.Setenv("STOCKS_TEST_MODE", "1")
		}
	})
}
