package observe

// Outcome is returned by best-effort operations that record a failure in
// their store's error slot instead of returning it. The caller sees that an
// error happened and was deliberately not propagated.
type Outcome struct {
	Err error
}

// Failed wraps err in an Outcome.
func Failed(err error) Outcome { return Outcome{Err: err} }

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Message returns the recorded error text, or "" on success.
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
