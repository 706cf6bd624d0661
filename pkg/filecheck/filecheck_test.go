package filecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		size     int64
		wantErr  error
	}{
		{"valid go file", "main.go", 120, nil},
		{"valid upper-case extension", "APP.JS", 1, nil},
		{"exactly at limit", "config.yaml", MaxFileSize, nil},
		{"dotenv", ".env", 10, nil},
		{"over limit", "big.py", MaxFileSize + 1, ErrTooLarge},
		{"unsupported extension", "image.png", 100, ErrUnsupported},
		{"no extension", "Makefile", 100, ErrUnsupported},
		{"empty file", "index.ts", 0, ErrEmpty},
		{"too large wins over unsupported", "video.mp4", MaxFileSize + 1, ErrTooLarge},
		{"unsupported wins over empty", "notes.txt", 0, ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.fileName, tt.size)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIsSupportedFileType(t *testing.T) {
	for _, ext := range SupportedExtensions {
		assert.True(t, IsSupportedFileType("file"+ext), ext)
	}
	assert.False(t, IsSupportedFileType("archive.zip"))
	assert.False(t, IsSupportedFileType(""))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "File too large (max 5MB)", ErrTooLarge.Error())
	assert.Equal(t, "Unsupported file type", ErrUnsupported.Error())
	assert.Equal(t, "File is empty", ErrEmpty.Error())
}
