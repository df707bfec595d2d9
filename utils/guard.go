package utils

// Guard runs a cleanup function when the guarded operation did not declare success, e.g. to remove
// a partially written output file:
//
//	guard := NewGuard(func() { RemoveFileNoError(path) })
//	defer guard.OnFail()
//	if err := write(path); err != nil {
//		return err
//	}
//	guard.Success()
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a Guard that calls onFailCleanup from OnFail unless Success was called.
func NewGuard(onFailCleanup func()) *Guard {
	ret := &Guard{}
	ret.OnFail = func() {
		if !ret.success {
			onFailCleanup()
		}
	}
	return ret
}

// Success declares the operation succeeded, so OnFail does nothing.
func (guard *Guard) Success() {
	guard.success = true
}
