package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://img.example/avatar.jpg", false},
		{"http://img.example/avatar.jpg", false},
		{"file:///etc/passwd", true},
		{"javascript:alert(1)", true},
		{"img.example/avatar.jpg", true},
		{"https://", true},
		{"", true},
		{"%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafeURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenURL_RejectsUnsafe(t *testing.T) {
	assert.ErrorIs(t, OpenURL("file:///tmp/x"), ErrUnsafeURL)
}

func TestOpenerCommand(t *testing.T) {
	name, args := openerCommand("darwin", "https://x.example")
	assert.Equal(t, "open", name)
	assert.Equal(t, []string{"https://x.example"}, args)

	name, args = openerCommand("windows", "https://x.example")
	assert.Equal(t, "rundll32", name)
	assert.Equal(t, []string{"url.dll,FileProtocolHandler", "https://x.example"}, args)

	name, _ = openerCommand("linux", "https://x.example")
	assert.Equal(t, "xdg-open", name)
}
