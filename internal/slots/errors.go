package slots

// poolResetError signals that ResetAll cleared the pool while a caller was
// waiting; the in-flight acquisition was abandoned, not failed.
type poolResetError struct{}

func (poolResetError) Error() string { return "slot pool reset" }

// IsPoolReset reports whether err indicates the pool was reset under a
// blocked Acquire.
func IsPoolReset(err error) bool {
	_, ok := err.(poolResetError)
	return ok
}
