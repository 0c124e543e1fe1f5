package middleware

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "uuid segments collapsed",
			path:     "/api/projects/6ba7b810-9dad-11d1-80b4-00c04fd430c8/nodes/6ba7b811-9dad-11d1-80b4-00c04fd430c8",
			expected: "/api/projects/{id}/nodes/{id}",
		},
		{
			name:     "static path untouched",
			path:     "/api/completions",
			expected: "/api/completions",
		},
		{
			name:     "non-uuid segment kept",
			path:     "/api/projects/demo/tree",
			expected: "/api/projects/demo/tree",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.expected {
				t.Errorf("normalizePath(%q) = %q, expected %q", tt.path, got, tt.expected)
			}
		})
	}
}
