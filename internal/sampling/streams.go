package sampling

import (
	"hash/fnv"
	"math/rand/v2"
)

// Streams derives reproducible, mutually independent random streams from a
// single run seed. A stream depends only on (seed, subsystem, day,
// replication), so replications can run on any goroutine in any order and
// still draw the same numbers.
type Streams struct {
	seed int64
}

// NewStreams creates a stream factory for seed.
func NewStreams(seed int64) Streams {
	return Streams{seed: seed}
}

// Seed returns the run seed.
func (s Streams) Seed() int64 {
	return s.seed
}

// For returns the stream for one replication of one day of a subsystem.
func (s Streams) For(subsystem string, day, replication int) *rand.Rand {
	hi := uint64(s.seed) ^ fnv1a64(subsystem)
	lo := splitmix64(uint64(uint32(day))<<32 | uint64(uint32(replication)))
	return rand.New(rand.NewPCG(hi, lo))
}

func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// splitmix64 scrambles adjacent (day, replication) pairs into distant states.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
