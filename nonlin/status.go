// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nonlin

// Status is the uniform return code shared by every callback kind and
// by Solve itself: zero is success, positive codes are recoverable
// (the caller may retry with a smaller step or a fresh linearization),
// negative codes are fatal and abort the solve attempt immediately.
type Status int

const (
	// Success reports a converged solve or a successful callback.
	Success Status = 0

	// SysRecoverable reports a recoverable system-function failure,
	// e.g. the residual could not be evaluated at the trial iterate.
	SysRecoverable Status = 1
	// LSetupRecoverable reports a recoverable linear-setup failure,
	// e.g. a singular preconditioner factorization.
	LSetupRecoverable Status = 2
	// LSolveRecoverable reports a recoverable linear-solve failure,
	// e.g. a Krylov iteration that stalled short of its tolerance.
	LSolveRecoverable Status = 3
	// ConvRecoverable reports non-convergence after exhausting the
	// iteration limit.
	ConvRecoverable Status = 4
	// Continue is returned by a ConvTestFn to request one more
	// iteration. It never escapes a Solve.
	Continue Status = 5
)

const (
	// SysFail reports an unrecoverable system-function failure.
	SysFail Status = -1
	// LSetupFail reports an unrecoverable linear-setup failure.
	LSetupFail Status = -2
	// LSolveFail reports an unrecoverable linear-solve failure.
	LSolveFail Status = -3
	// IllegalInput reports API misuse detected during a solve, such as
	// a missing required callback or an invalid-state call ordering.
	// Always fatal, never retried.
	IllegalInput Status = -4
)

// Recoverable reports whether s permits the caller to retry.
func (s Status) Recoverable() bool { return s > Success }

// Fatal reports whether s must abort the current solve attempt.
func (s Status) Fatal() bool { return s < Success }

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case SysRecoverable:
		return "system function failed recoverably"
	case LSetupRecoverable:
		return "linear setup failed recoverably"
	case LSolveRecoverable:
		return "linear solve failed recoverably"
	case ConvRecoverable:
		return "iteration limit reached without convergence"
	case Continue:
		return "continue iterating"
	case SysFail:
		return "system function failed"
	case LSetupFail:
		return "linear setup failed"
	case LSolveFail:
		return "linear solve failed"
	case IllegalInput:
		return "illegal input"
	}
	return "unknown status"
}
