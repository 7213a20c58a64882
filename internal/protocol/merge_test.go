package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePatch(t *testing.T) {
	tests := []struct {
		name   string
		target string
		patch  string
		want   string
	}{
		{
			name:   "replaces scalar",
			target: `{"a": "b"}`,
			patch:  `{"a": "c"}`,
			want:   `{"a": "c"}`,
		},
		{
			name:   "adds member",
			target: `{"a": "b"}`,
			patch:  `{"b": "c"}`,
			want:   `{"a": "b", "b": "c"}`,
		},
		{
			name:   "null deletes member",
			target: `{"a": "b", "b": "c"}`,
			patch:  `{"a": null}`,
			want:   `{"b": "c"}`,
		},
		{
			name:   "array replaced wholesale",
			target: `{"a": ["b"]}`,
			patch:  `{"a": "c"}`,
			want:   `{"a": "c"}`,
		},
		{
			name:   "recurses into objects",
			target: `{"a": {"b": "c"}}`,
			patch:  `{"a": {"b": "d", "c": null}}`,
			want:   `{"a": {"b": "d"}}`,
		},
		{
			name:   "object patch over scalar",
			target: `{"a": [1, 2]}`,
			patch:  `{"a": {"b": "c"}}`,
			want:   `{"a": {"b": "c"}}`,
		},
		{
			name:   "non-object patch replaces target",
			target: `{"a": "b"}`,
			patch:  `["c"]`,
			want:   `["c"]`,
		},
		{
			name:   "null patch replaces target",
			target: `{"a": "b"}`,
			patch:  `null`,
			want:   `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target, patch, want any
			require.NoError(t, json.Unmarshal([]byte(tt.target), &target))
			require.NoError(t, json.Unmarshal([]byte(tt.patch), &patch))
			require.NoError(t, json.Unmarshal([]byte(tt.want), &want))

			assert.Equal(t, want, mergePatch(target, patch))
		})
	}
}
