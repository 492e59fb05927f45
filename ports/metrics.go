package ports

// Metrics records authentication outcomes
type Metrics interface {
	ObserveAuth(step, outcome string)
	ObserveThrottle(scope string)
}
