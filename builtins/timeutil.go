package builtins

import "time"

func timeDurationFromDays(days float64) time.Duration {
	return time.Duration(days * float64(24*time.Hour))
}

func timeDurationFromMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
