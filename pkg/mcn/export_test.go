package mcn

// resetRegistry empties the advertised-hub registry so enumeration and
// estimator tests start from a known state. Hubs advertised earlier keep
// working through their own handles; only enumeration forgets them.
func resetRegistry() {
	critical.Lock()
	registry = listEntry{}
	critical.Unlock()
}
