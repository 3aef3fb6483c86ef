package thermal

// Provider computes a source for cells the constant registry does not
// cover. Returning a nil source or an error means "no source here"; panics
// are contained the same way. Providers run in registration order and the
// first usable result wins a query cell.
type Provider func(w World, pos Vec3i, c Content) (*Source, error)

// RegisterConstant binds a source descriptor to a content type. Upserts are
// idempotent; re-registering replaces the descriptor but the scan radius
// keeps any larger value it reached before.
func (e *Engine) RegisterConstant(contentType uint16, src Source) {
	s := src.normalized()
	e.mu.Lock()
	e.constants[contentType] = s
	e.mu.Unlock()
	e.growRadius(s.InfluenceRadius())
}

// RegisterProvider appends a dynamic provider. maxRangeHint widens the scan
// radius up front so cells the provider will claim are reached even before
// the first dynamic source is observed; pass 0 if radius growth on first
// observation is acceptable.
func (e *Engine) RegisterProvider(p Provider, maxRangeHint int) {
	if p == nil {
		return
	}
	e.mu.Lock()
	e.providers = append(e.providers, p)
	e.mu.Unlock()
	e.growRadius(maxRangeHint)
}

// SetMaxRangeHint widens the scan radius without registering anything.
func (e *Engine) SetMaxRangeHint(r int) {
	e.growRadius(r)
}

// ConstantFor exposes the registered descriptor for a content type, for
// introspection surfaces.
func (e *Engine) ConstantFor(contentType uint16) (Source, bool) {
	e.mu.RLock()
	src, ok := e.constants[contentType]
	e.mu.RUnlock()
	return src, ok
}

// resolve finds the source occupying a cell: the constant registry first,
// then the providers in order. Every provider result that is seen, even one
// filtered out as unusable, grows the scan radius by its influence, so the
// cube adapts to configurations no registration hinted at.
func (e *Engine) resolve(w World, pos Vec3i, c Content) (Source, bool) {
	e.mu.RLock()
	src, ok := e.constants[c.Type]
	provs := e.providers
	e.mu.RUnlock()
	if ok {
		return src, true
	}
	for _, p := range provs {
		dyn, ok := e.callProvider(p, w, pos, c)
		if !ok {
			continue
		}
		e.growRadius(dyn.InfluenceRadius())
		if dyn.DeltaC != 0 && dyn.Range > 0 {
			return dyn, true
		}
	}
	return Source{}, false
}

// callProvider is the isolation boundary for extensions: an error or panic
// from a provider never aborts resolution, it just contributes no source.
func (e *Engine) callProvider(p Provider, w World, pos Vec3i, c Content) (src Source, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if e.log != nil {
				e.log.Printf("thermal provider panic at %v: %v", pos.ToArray(), r)
			}
			src, ok = Source{}, false
		}
	}()
	s, err := p(w, pos, c)
	if err != nil || s == nil {
		return Source{}, false
	}
	return s.normalized(), true
}
