package utils

import "time"

// EpochMillis converts an optional timestamp to milliseconds since the epoch, 0 when nil
func EpochMillis(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Percent returns floor(current*100/total), 100 for an empty total
func Percent(current, total int) int {
	if total <= 0 {
		return 100
	}
	if current >= total {
		return 100
	}
	return current * 100 / total
}
