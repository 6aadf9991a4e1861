package dnsresolver

// ErrKind is a closed set of DNS failure variants. Callers switch on
// the kind instead of inspecting error text.
type ErrKind int

const (
	// ErrKindNone means the query succeeded.
	ErrKindNone ErrKind = iota

	// ErrKindTimeout is a query or exchange timeout. Transient.
	ErrKindTimeout

	// ErrKindNXDomain means the domain does not exist. Definitive.
	ErrKindNXDomain

	// ErrKindNoRecords means the domain exists but has none of the
	// requested records. Definitive.
	ErrKindNoRecords

	// ErrKindServerFailure covers SERVFAIL, REFUSED and
	// all-nameservers-failed conditions. Transient.
	ErrKindServerFailure

	// ErrKindMalformed means the response could not be interpreted.
	// Transient.
	ErrKindMalformed
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNone:
		return "none"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindNXDomain:
		return "nxdomain"
	case ErrKindNoRecords:
		return "no records"
	case ErrKindServerFailure:
		return "server failure"
	case ErrKindMalformed:
		return "malformed response"
	default:
		return "unknown"
	}
}

// Transient reports whether the failure is an infrastructure hiccup
// rather than a stable fact about the domain. Transient outcomes must
// never enter the cache.
func (k ErrKind) Transient() bool {
	switch k {
	case ErrKindTimeout, ErrKindServerFailure, ErrKindMalformed:
		return true
	default:
		return false
	}
}

// QueryError is the structured error returned by the resolver's query
// layer.
type QueryError struct {
	Kind   ErrKind
	Detail string
}

func (e *QueryError) Error() string {
	if e.Detail == "" {
		return "dns: " + e.Kind.String()
	}
	return "dns: " + e.Kind.String() + ": " + e.Detail
}
