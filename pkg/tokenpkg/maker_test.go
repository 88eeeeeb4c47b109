package tokenpkg

import (
	"strings"
	"testing"
	"time"
)

func TestNewMaker(t *testing.T) {
	t.Parallel()

	key := strings.Repeat("k", 32)

	testCases := []struct {
		kind    string
		wantErr bool
	}{
		{kind: KindPaseto},
		{kind: KindJWT},
		{kind: ""},
		{kind: "macaroon", wantErr: true},
	}

	for _, tc := range testCases {
		maker, err := NewMaker(tc.kind, key)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NewMaker(%q) returned nil error, want error", tc.kind)
			}

			continue
		}

		if err != nil {
			t.Fatalf("NewMaker(%q) returned error: %v", tc.kind, err)
		}

		token, _, err := maker.CreateToken("owner", time.Minute)
		if err != nil {
			t.Fatalf("maker.CreateToken() returned error: %v", err)
		}

		if _, err := maker.VerifyToken(token + "x"); err != ErrInvalidToken {
			t.Errorf("maker.VerifyToken(tampered) returned %v, want %v", err, ErrInvalidToken)
		}
	}
}
