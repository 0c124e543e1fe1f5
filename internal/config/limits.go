package config

const (
	// MaxNodeNameLength is the maximum length for file and folder names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxNodeNameLength = 255

	// MaxNodePathLength is the maximum length for full materialized paths.
	// Set to 1000 to allow deeply nested trees while still fitting
	// comfortably in an indexed text column. Longer paths indicate
	// overly deep hierarchies.
	MaxNodePathLength = 1000

	// MaxContentBytes is the maximum size of a file body accepted on a
	// content write. Matches the request body cap enforced by httputil.
	MaxContentBytes = 10 << 20

	// MaxCompletionPromptLength is the maximum prompt size accepted by the
	// completion endpoint.
	MaxCompletionPromptLength = 100_000
)
