package crawl

// Breaker opens after a run of consecutive failed days. Any successful day closes it
// and resets the streak. It never half-opens: once open, the current run stops.
type Breaker struct {
	maxFailures int
	streak      int
}

// NewBreaker returns a Breaker that opens after maxFailures consecutive failures.
// maxFailures <= 0 never opens.
func NewBreaker(maxFailures int) *Breaker {
	return &Breaker{maxFailures: maxFailures}
}

// Success resets the failure streak.
func (b *Breaker) Success() { b.streak = 0 }

// Failure records one failed day and reports whether the breaker is now open.
func (b *Breaker) Failure() bool {
	b.streak++
	return b.Open()
}

// Open reports whether the streak reached the threshold.
func (b *Breaker) Open() bool {
	return b.maxFailures > 0 && b.streak >= b.maxFailures
}

// Streak returns the current number of consecutive failures.
func (b *Breaker) Streak() int { return b.streak }
