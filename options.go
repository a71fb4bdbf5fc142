package toncell

// Option adjusts BOC envelope encoding.
type Option func(*config) error

type config struct {
	index     bool
	checksum  bool
	cacheBits bool
}

func defaultConfig() *config {
	return &config{}
}

// WithIndex emits the per-cell cumulative offset index, allowing random
// access into the envelope without a full scan.
func WithIndex() Option {
	return func(c *config) error {
		c.index = true
		return nil
	}
}

// WithChecksum appends a CRC32C trailer over the whole envelope.
func WithChecksum() Option {
	return func(c *config) error {
		c.checksum = true
		return nil
	}
}

// WithCacheBits reserves the low bit of each index entry as a cache flag.
// Implies WithIndex.
func WithCacheBits() Option {
	return func(c *config) error {
		c.index = true
		c.cacheBits = true
		return nil
	}
}
