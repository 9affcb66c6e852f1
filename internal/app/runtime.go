package app

import (
	"os"
	"sync"
)

const testModeEnv = "STOREFRONT_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	switch os.Getenv(testModeEnv) {
	case "1", "true", "yes":
		return true
	}
	return false
})

// InTestMode reports whether process startup should be skipped. The binaries
// check it first so compile-and-link smoke runs never touch Postgres or Redis.
func InTestMode() bool {
	return testMode()
}
