package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStringIncludesKindAndSubKind(t *testing.T) {
	err := New(KindValidation, ShapeMismatch, "input shape (3) does not match (2)")
	assert.Contains(t, err.Error(), "Validation")
	assert.Contains(t, err.Error(), "ShapeMismatch")
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("file not found")
	err := ModelLoad(FileNotFound, cause)
	assert.True(t, errors.Is(err, cause))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ModelLoad", KindModelLoad.String())
	assert.Equal(t, "InvalidArgument", KindInvalidArgument.String())
}
