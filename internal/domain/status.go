package domain

// AccountStatus is the derived presentation label for an account's
// standing. It is a total function of the two independent flags.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusLocked    AccountStatus = "locked"
	StatusSuspended AccountStatus = "suspended"
)

// StatusLabelFor derives the presentation status from the standing flags.
// Blocked wins regardless of active, so a "suspended" write (inactive +
// blocked) reads back as "locked". The collapse is lossy and matches the
// historical behavior of the platform; callers needing the exact flags
// must read them directly.
func StatusLabelFor(isActive, isBlocked bool) AccountStatus {
	if isBlocked {
		return StatusLocked
	}
	if isActive {
		return StatusActive
	}
	return StatusInactive
}

// StandingFor maps a written status label back onto the standing flags.
// It is the inverse of StatusLabelFor wherever both are defined. The
// second return is false for unknown labels.
func StandingFor(status AccountStatus) (isActive, isBlocked, ok bool) {
	switch status {
	case StatusActive:
		return true, false, true
	case StatusInactive:
		return false, false, true
	case StatusLocked:
		return true, true, true
	case StatusSuspended:
		return false, true, true
	default:
		return false, false, false
	}
}

// Status derives the presentation label for the account.
func (a *Account) Status() AccountStatus {
	return StatusLabelFor(a.IsActive, a.IsBlocked)
}
