package ragerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigfWrapsSentinel(t *testing.T) {
	err := Configf("missing %s", "OPENAI_API_KEY")
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "missing OPENAI_API_KEY")
}

func TestCapabilityErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &CapabilityError{
		Stage:     StageUpsert,
		Namespace: "acme/widgets",
		Affected:  []string{ChunkRef("main.go", 0), ChunkRef("main.go", 1)},
		Err:       cause,
	}

	assert.Equal(t, "upsert failed for namespace acme/widgets (2 chunks affected): connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	var capErr *CapabilityError
	wrapped := errors.Join(errors.New("outer"), err)
	assert.True(t, errors.As(wrapped, &capErr))
	assert.Equal(t, StageUpsert, capErr.Stage)
}
