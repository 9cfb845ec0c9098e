package ticket

import "time"

// SetNow replaces the clock until the returned func is called.
func SetNow(f func() time.Time) (restore func()) {
	orig := nowFunc
	nowFunc = f
	return func() { nowFunc = orig }
}
