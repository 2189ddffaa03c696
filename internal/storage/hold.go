package storage

// Hold marks paths as in use until the returned release is called. Sweep
// leaves held paths alone. Holds nest.
func (a *Area) Hold(paths ...string) (release func()) {
	a.holdMu.Lock()
	for _, p := range paths {
		a.held[p]++
	}
	a.holdMu.Unlock()

	released := false
	return func() {
		a.holdMu.Lock()
		defer a.holdMu.Unlock()
		if released {
			return
		}
		released = true
		for _, p := range paths {
			if a.held[p]--; a.held[p] <= 0 {
				delete(a.held, p)
			}
		}
	}
}

// InUse reports whether path is currently held.
func (a *Area) InUse(path string) bool {
	a.holdMu.Lock()
	defer a.holdMu.Unlock()
	return a.held[path] > 0
}

// removeUnlessHeld removes path unless it is held. The check and the removal
// happen under the hold lock so a job cannot take a hold in between.
func (a *Area) removeUnlessHeld(path string) (held bool, err error) {
	a.holdMu.Lock()
	defer a.holdMu.Unlock()
	if a.held[path] > 0 {
		return true, nil
	}
	return false, a.removePath(path)
}
