package utils

import "go.uber.org/zap"

// Must stops start-up on a fatal error.
func Must(e error) {
	if e != nil {
		zap.S().Fatalw("startup failed", "error", e)
	}
}
