package dispatch

// Credential is an identity/secret pair authorizing outbound delivery
// through one transport account. Immutable for the duration of a run.
type Credential struct {
	Identity string
	Secret   string
}

// CredentialPool holds the ordered credential set for one dispatch run and
// owns the rotation cursor plus the per-credential disabled flags. A pool
// belongs to exactly one run; it is not safe for concurrent use.
type CredentialPool struct {
	creds    []Credential
	disabled []bool
	cursor   int
}

// NewCredentialPool builds a pool from the configured credentials.
// Returns ErrNoCredentials when the list is empty.
func NewCredentialPool(creds []Credential) (*CredentialPool, error) {
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}
	cp := make([]Credential, len(creds))
	copy(cp, creds)
	return &CredentialPool{
		creds:    cp,
		disabled: make([]bool, len(cp)),
	}, nil
}

// Next returns the next active credential in round-robin order. It never
// returns a disabled credential; once every credential is disabled it
// returns ErrPoolExhausted.
func (p *CredentialPool) Next() (Credential, error) {
	for i := 0; i < len(p.creds); i++ {
		idx := (p.cursor + i) % len(p.creds)
		if p.disabled[idx] {
			continue
		}
		p.cursor = (idx + 1) % len(p.creds)
		return p.creds[idx], nil
	}
	return Credential{}, ErrPoolExhausted
}

// Disable marks the credential with the given identity unusable for the
// remainder of the run. Unknown identities are ignored.
func (p *CredentialPool) Disable(c Credential) {
	for i := range p.creds {
		if p.creds[i].Identity == c.Identity {
			p.disabled[i] = true
			return
		}
	}
}

// Active returns the number of credentials still usable.
func (p *CredentialPool) Active() int {
	n := 0
	for _, d := range p.disabled {
		if !d {
			n++
		}
	}
	return n
}

// Size returns the total number of configured credentials.
func (p *CredentialPool) Size() int { return len(p.creds) }
