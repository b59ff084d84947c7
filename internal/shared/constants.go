package shared

import "time"

// Server configuration
const (
	DefaultPort            = 8080
	DefaultShutdownTimeout = 10 * time.Second
)

// Connection handling. One request per connection, so the whole request has
// to fit in the read buffer.
const (
	MaxRequestBytes   = 1 << 20
	ConnReadTimeout   = 30 * time.Second
	ConnWriteTimeout  = 5 * time.Minute
	RequestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	RequestIDLength   = 28
)
