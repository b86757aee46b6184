package installer

import (
	"crypto"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	helloWorld       = "hello world\n"
	helloWorldSHA256 = "a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mustSHA256(t *testing.T, hex string) *DigestVerifier {
	t.Helper()
	v, err := NewSHA256Verifier(hex)
	if err != nil {
		t.Fatalf("NewSHA256Verifier() error = %v", err)
	}
	return v
}

func TestSizeVerifier(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		wantErr bool
	}{
		{"exact", []string{"hello ", "world\n"}, false},
		{"short", []string{"hello"}, true},
		{"extra bytes", []string{helloWorld, "!"}, true},
		{"empty", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewSizeVerifier(12)
			for _, c := range tt.chunks {
				v.Update([]byte(c))
			}
			err := v.Verify()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && KindOf(err) != KindVerify {
				t.Errorf("KindOf = %v, want %v", KindOf(err), KindVerify)
			}
		})
	}
}

func TestSizeVerifier_Resets(t *testing.T) {
	v := NewSizeVerifier(12)
	v.Update([]byte(helloWorld))
	if err := v.Verify(); err != nil {
		t.Fatalf("first Verify() error = %v", err)
	}
	v.Update([]byte(helloWorld))
	if err := v.Verify(); err != nil {
		t.Errorf("second Verify() error = %v, state was not reset", err)
	}
}

func TestSizeVerifier_VerifyFile(t *testing.T) {
	path := writeTempFile(t, helloWorld)

	if err := VerifyFile(NewSizeVerifier(12), path); err != nil {
		t.Errorf("VerifyFile() error = %v", err)
	}
	err := VerifyFile(NewSizeVerifier(13), path)
	if KindOf(err) != KindVerify {
		t.Errorf("VerifyFile() wrong size: error = %v, want KindVerify", err)
	}
	err = VerifyFile(NewSizeVerifier(12), filepath.Join(t.TempDir(), "missing"))
	if KindOf(err) != KindIO {
		t.Errorf("VerifyFile() missing file: error = %v, want KindIO", err)
	}
}

func TestDigestVerifier(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"match", helloWorld, false},
		{"wrong data", "wrong data\n", true},
		{"extra bytes", helloWorld + "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustSHA256(t, helloWorldSHA256)
			v.Update([]byte(tt.data))
			err := v.Verify()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if KindOf(err) != KindVerify {
					t.Errorf("KindOf = %v, want KindVerify", KindOf(err))
				}
				if !strings.Contains(err.Error(), "sha256 mismatch") {
					t.Errorf("error = %v, want sha256 mismatch", err)
				}
			}
		})
	}
}

func TestDigestVerifier_UppercaseHex(t *testing.T) {
	v := mustSHA256(t, strings.ToUpper(helloWorldSHA256))
	v.Update([]byte(helloWorld))
	if err := v.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestDigestVerifier_ResetsAfterMismatch(t *testing.T) {
	v := mustSHA256(t, helloWorldSHA256)
	v.Update([]byte("wrong data\n"))
	if err := v.Verify(); err == nil {
		t.Fatal("expected mismatch")
	}
	v.Update([]byte(helloWorld))
	if err := v.Verify(); err != nil {
		t.Errorf("Verify() after reset error = %v", err)
	}
}

func TestDigestVerifier_Chunking(t *testing.T) {
	v := mustSHA256(t, helloWorldSHA256)
	for i := 0; i < len(helloWorld); i++ {
		v.Update([]byte{helloWorld[i]})
	}
	if err := v.Verify(); err != nil {
		t.Errorf("byte-by-byte Verify() error = %v", err)
	}
}

func TestNewDigestVerifier_Errors(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{"short digest", "abcd"},
		{"bad hex", strings.Repeat("zz", 32)},
		{"odd length", helloWorldSHA256[:63]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSHA256Verifier(tt.hex)
			if KindOf(err) != KindVerifier {
				t.Errorf("error = %v, want KindVerifier", err)
			}
		})
	}

	if _, err := NewDigestVerifier(crypto.Hash(0), nil); KindOf(err) != KindVerifier {
		t.Errorf("unavailable hash: error = %v, want KindVerifier", err)
	}
}

func TestAll(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		size      uint64
		wantErr   bool
		wantMulti bool
	}{
		{"both pass", helloWorld, 12, false, false},
		{"size fails", helloWorld, 11, true, false},
		{"both fail", "wrong data\n!", 11, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := All(NewSizeVerifier(tt.size), mustSHA256(t, helloWorldSHA256))
			v.Update([]byte(tt.data))
			err := v.Verify()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if KindOf(err) != KindVerify {
				t.Errorf("KindOf = %v, want KindVerify", KindOf(err))
			}
			if got := strings.Contains(err.Error(), "multiple checks failed"); got != tt.wantMulti {
				t.Errorf("error = %v, multiple = %v, want %v", err, got, tt.wantMulti)
			}
		})
	}
}

func TestAll_Empty(t *testing.T) {
	v := All()
	v.Update([]byte("anything"))
	if err := v.Verify(); err != nil {
		t.Errorf("All().Verify() error = %v", err)
	}
}

func TestAll_Flattens(t *testing.T) {
	inner := All(NewSizeVerifier(12), nil)
	outer := All(inner, mustSHA256(t, helloWorldSHA256))
	if got := len(outer.(*allVerifier).members); got != 2 {
		t.Errorf("members = %d, want 2", got)
	}
}

func TestAll_VerifyFile(t *testing.T) {
	path := writeTempFile(t, helloWorld)

	v := All(NewSizeVerifier(12), mustSHA256(t, helloWorldSHA256))
	if err := VerifyFile(v, path); err != nil {
		t.Errorf("VerifyFile() error = %v", err)
	}

	bad := writeTempFile(t, "wrong data\n")
	if err := VerifyFile(v, bad); KindOf(err) != KindVerify {
		t.Errorf("VerifyFile(bad) error = %v, want KindVerify", err)
	}

	// The verifier is reusable after a failure.
	if err := VerifyFile(v, path); err != nil {
		t.Errorf("VerifyFile() after failure error = %v", err)
	}
}

func TestOptional(t *testing.T) {
	if err := Optional(nil).Verify(); err != nil {
		t.Errorf("Optional(nil).Verify() error = %v", err)
	}

	v := Optional(NewSizeVerifier(1))
	if err := v.Verify(); KindOf(err) != KindVerify {
		t.Errorf("Optional(size).Verify() error = %v, want KindVerify", err)
	}

	path := writeTempFile(t, helloWorld)
	if err := VerifyFile(Optional(nil), path); err != nil {
		t.Errorf("VerifyFile(Optional(nil)) error = %v", err)
	}
}

func TestNoop(t *testing.T) {
	var v Verifier = Noop{}
	v.Update([]byte("x"))
	if err := v.Verify(); err != nil {
		t.Errorf("Noop.Verify() error = %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestUpdateFrom_ReadError(t *testing.T) {
	err := UpdateFrom(NewSizeVerifier(0), failingReader{})
	if KindOf(err) != KindIO {
		t.Errorf("UpdateFrom() error = %v, want KindIO", err)
	}
}

func TestUpdateFrom_LargeInput(t *testing.T) {
	data := strings.Repeat("a", 3*readBufferSize+5)
	v := NewSizeVerifier(uint64(len(data)))
	if err := UpdateFrom(v, strings.NewReader(data)); err != nil {
		t.Fatal(err)
	}
	if err := v.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}
