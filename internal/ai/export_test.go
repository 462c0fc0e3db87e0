package ai

import "time"

// SetRetryBaseDelay shortens retry backoff in tests
func SetRetryBaseDelay(b *GeminiBackend, d time.Duration) {
	b.baseDelay = d
}
