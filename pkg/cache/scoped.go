package cache

// ScopedKeyer prefixes every key of an inner Keyer. The server scopes keys
// per API client so tenants never share artifacts.
//
//	tenant := NewScopedKeyer(NewDefaultKeyer(), "client:site-7:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (DefaultKeyer when nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) PlanKey(sourceHash string, opts PlanKeyOpts) string {
	return k.prefix + k.inner.PlanKey(sourceHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(sourceHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sourceHash, opts)
}

func (k *ScopedKeyer) AssetKey(ref string) string {
	return k.prefix + k.inner.AssetKey(ref)
}
