package estimatefee

// ChainDirectory answers chain support queries. Satisfied by
// chainregistry.Registry.
type ChainDirectory interface {
	IsSupported(selector uint64) bool
}
