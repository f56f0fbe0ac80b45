package engine

import (
	"fmt"

	"github.com/aqueductql/aqueduct/internal/checks"
)

// Error codes attached to GraphQL errors through extensions. They separate
// engine defects from tenant-code failures and tenant API misuse, so an
// operator reading a response can tell who owns the bug.
const (
	codeFramework    = "FRAMEWORK_ERROR"
	codeResolver     = "RESOLVER_ERROR"
	codeUsage        = "USAGE_ERROR"
	codeAccessDenied = "ACCESS_DENIED"
)

// FrameworkError marks a violated engine invariant. Tenant code cannot
// cause one; seeing it in a response means the engine itself is broken.
type FrameworkError struct {
	msg   string
	cause error
}

func frameworkErrorf(format string, args ...any) *FrameworkError {
	return &FrameworkError{msg: fmt.Sprintf(format, args...)}
}

func (e *FrameworkError) Error() string {
	if e.cause != nil {
		return "framework: " + e.msg + ": " + e.cause.Error()
	}
	return "framework: " + e.msg
}

func (e *FrameworkError) Unwrap() error { return e.cause }

// TenantResolverError wraps a failure produced by tenant resolver or
// checker code: a returned error or a recovered panic.
type TenantResolverError struct {
	Resolver string
	Panicked bool
	cause    error
}

func resolverError(resolver string, cause error) *TenantResolverError {
	return &TenantResolverError{Resolver: resolver, cause: cause}
}

func resolverPanic(resolver string, recovered any) *TenantResolverError {
	return &TenantResolverError{
		Resolver: resolver,
		Panicked: true,
		cause:    fmt.Errorf("panic: %v", recovered),
	}
}

func (e *TenantResolverError) Error() string {
	return e.Resolver + ": " + e.cause.Error()
}

func (e *TenantResolverError) Unwrap() error { return e.cause }

// TenantUsageError marks a violated API contract: a batch result omitting
// a selector, a reference to a type the field cannot produce, and similar
// misuse that is deterministic given the tenant's code.
type TenantUsageError struct {
	Resolver string
	msg      string
}

func usageErrorf(resolver, format string, args ...any) *TenantUsageError {
	return &TenantUsageError{Resolver: resolver, msg: fmt.Sprintf(format, args...)}
}

func (e *TenantUsageError) Error() string {
	if e.Resolver == "" {
		return e.msg
	}
	return e.Resolver + ": " + e.msg
}

// checkFailure carries a failed access-check Result through a value chain
// so the field that owns the check can merge it with its own field-level
// result.
type checkFailure struct {
	result checks.Result
}

func (e *checkFailure) Error() string {
	if err := e.result.AsError(); err != nil {
		return "access denied: " + err.Error()
	}
	return "access denied"
}

// errorCode classifies err for the extensions map.
func errorCode(err error) string {
	switch err.(type) {
	case *FrameworkError:
		return codeFramework
	case *TenantUsageError:
		return codeUsage
	case *TenantResolverError:
		return codeResolver
	case *checkFailure:
		return codeAccessDenied
	}
	return codeResolver
}
