package api

// Authorizer decides whether a requester may reach the engine. It is an
// injected capability rather than package state so handlers are testable
// with fakes.
type Authorizer interface {
	Authorized(requesterID string) bool
}

// AllowList authorizes a fixed set of requester IDs. An empty allow-list
// authorizes nobody, which mirrors how the deployment behaves when the
// operator forgets to configure it: closed, not open.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from configured requester IDs.
func NewAllowList(ids []string) AllowList {
	al := make(AllowList, len(ids))
	for _, id := range ids {
		al[id] = struct{}{}
	}
	return al
}

func (al AllowList) Authorized(requesterID string) bool {
	_, ok := al[requesterID]
	return ok
}
