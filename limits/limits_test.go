package limits

import (
	"errors"
	"testing"
)

// TestMaxPayloadCalculation verifies that MaxPayload leaves room for the header.
func TestMaxPayloadCalculation(t *testing.T) {
	if got := MaxPayload(MaxDatagramSize); got != MaxDatagramSize-HeaderSize {
		t.Errorf("MaxPayload(%d) = %d, want %d", MaxDatagramSize, got, MaxDatagramSize-HeaderSize)
	}
	if got := MaxPayload(HeaderSize); got != 0 {
		t.Errorf("MaxPayload(HeaderSize) = %d, want 0", got)
	}
	if got := MaxPayload(0); got != 0 {
		t.Errorf("MaxPayload(0) = %d, want 0", got)
	}
}

func TestValidateDatagramSize(t *testing.T) {
	tests := []struct {
		name       string
		payloadLen int
		max        int
		wantErr    bool
	}{
		{"empty payload", 0, MaxDatagramSize, false},
		{"exactly at limit", MaxDatagramSize - HeaderSize, MaxDatagramSize, false},
		{"one byte over", MaxDatagramSize - HeaderSize + 1, MaxDatagramSize, true},
		{"header alone exceeds tiny limit", 0, HeaderSize - 1, true},
		{"large custom limit", 9000, 9016, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatagramSize(tt.payloadLen, tt.max)
			if tt.wantErr {
				if !errors.Is(err, ErrDatagramTooLarge) {
					t.Errorf("Expected ErrDatagramTooLarge, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestValidateLimit(t *testing.T) {
	valid := []int{HeaderSize + 1, MaxDatagramSize, MaxUDPPayload}
	for _, v := range valid {
		if err := ValidateLimit(v); err != nil {
			t.Errorf("ValidateLimit(%d) unexpected error: %v", v, err)
		}
	}

	invalid := []int{-1, 0, HeaderSize, MaxUDPPayload + 1}
	for _, v := range invalid {
		if err := ValidateLimit(v); !errors.Is(err, ErrInvalidDatagramLimit) {
			t.Errorf("ValidateLimit(%d) = %v, want ErrInvalidDatagramLimit", v, err)
		}
	}
}
