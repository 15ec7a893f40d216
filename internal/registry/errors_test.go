package registry

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Is(t *testing.T) {
	err := newError(CodeFailedPrecondition, "timestamp must increase", nil)

	if !errors.Is(err, ErrFailedPrecondition) {
		t.Errorf("errors.Is(%v, ErrFailedPrecondition) = false, want true", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("errors.Is(%v, ErrNotFound) = true, want false", err)
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if !errors.Is(wrapped, ErrFailedPrecondition) {
		t.Error("errors.Is should see through fmt.Errorf wrapping")
	}
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  &Error{Code: CodeNotFound, Message: "project not found"},
			want: "[NOT_FOUND] project not found",
		},
		{
			name: "with cause",
			err:  &Error{Code: CodeInternal, Message: "failed to generate token", Cause: errors.New("eof")},
			want: "[INTERNAL] failed to generate token: eof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", got)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	if got := CodeOf(fmt.Errorf("wrap: %w", ErrNotFound)); got != CodeNotFound {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, CodeNotFound)
	}
}
