package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByCode(t *testing.T) {
	err := New(CodePermissionDenied, "save requires gm")
	wrapped := fmt.Errorf("save blueprint: %w", err)

	assert.True(t, stderrors.Is(wrapped, &Error{Code: CodePermissionDenied}))
	assert.False(t, stderrors.Is(wrapped, &Error{Code: CodeNotFound}))
	assert.True(t, HasCode(wrapped, CodePermissionDenied))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeUnknown, "write blueprint", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "write blueprint: disk full", err.Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeMissingCreatureCollection, CodeOf(fmt.Errorf("x: %w", New(CodeMissingCreatureCollection, "missing"))))
	assert.Equal(t, CodeUnknown, CodeOf(stderrors.New("plain")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestWithMetadata(t *testing.T) {
	err := WithMetadata(CodeInvalidField, "bad field", map[string]string{"Path": "identity.foo"})
	assert.Equal(t, "identity.foo", err.Metadata["Path"])
}

func TestMessageKeys(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{CodePermissionDenied, "brewer.errors.gm_only"},
		{CodeMissingBlueprintCollection, "brewer.errors.missing_blueprint_pack"},
		{CodeMissingCreatureCollection, "brewer.errors.missing_creature_pack"},
		{CodeExportUnsupported, "brewer.errors.export_unsupported"},
		{CodeUnknown, "brewer.errors.unexpected"},
		{Code("SOMETHING_ELSE"), "brewer.errors.unexpected"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.MessageKey())
		})
	}
}
