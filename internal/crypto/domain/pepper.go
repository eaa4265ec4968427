package domain

// Pepper is the server-held secret mixed into every key derivation.
//
// It is loaded once at startup and passed by reference to the services that need it.
type Pepper struct {
	value []byte
}

// NewPepper copies value into a Pepper. An empty value is rejected.
func NewPepper(value []byte) (*Pepper, error) {
	if len(value) == 0 {
		return nil, ErrPepperNotConfigured
	}
	b := make([]byte, len(value))
	copy(b, value)
	return &Pepper{value: b}, nil
}

// Bytes returns the pepper bytes. Callers must not modify the slice.
func (p *Pepper) Bytes() []byte {
	return p.value
}

// Close zeroes the pepper.
func (p *Pepper) Close() {
	if p == nil {
		return
	}
	Zero(p.value)
}
