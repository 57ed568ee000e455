package plugin

// Injector writes frames, unmodified, out of one attachment point.
type Injector interface {
	Plugin
	Inject(frame []byte) error
}
