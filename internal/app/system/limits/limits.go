// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxJSONBody caps API request bodies. Every payload is a handful of
	// short strings.
	MaxJSONBody = 64 << 10 // 64 KiB
)
