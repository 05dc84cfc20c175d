package ledger

// Role is a capability granted to a caller. Privileged operations take the
// caller explicitly and check the role they need, instead of relying on
// ambient identity.
type Role string

const (
	// RoleRelayer may record answers on behalf of the off-chain AI exchange.
	RoleRelayer Role = "relayer"
	// RoleConsensus may trigger round finalization.
	RoleConsensus Role = "consensus"
	// RoleDistributor may slash staked balances.
	RoleDistributor Role = "distributor"
)

// Caller identifies who is invoking a ledger operation and what they are
// allowed to do.
type Caller struct {
	Addr  string
	roles map[Role]struct{}
}

// NewCaller builds a caller with the given capability set.
func NewCaller(addr string, roles ...Role) Caller {
	c := Caller{Addr: addr, roles: make(map[Role]struct{}, len(roles))}
	for _, r := range roles {
		c.roles[r] = struct{}{}
	}
	return c
}

// Has reports whether the caller holds the role.
func (c Caller) Has(r Role) bool {
	_, ok := c.roles[r]
	return ok
}
