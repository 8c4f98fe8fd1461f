package term

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegularFileIsNotTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "input.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Fatalf("a regular file must not be reported as a terminal")
	}
	if charDevice(f) {
		t.Fatalf("a regular file is not a character device")
	}
}

func TestPipeIsNotTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	if IsTerminal(r) || IsTerminal(w) {
		t.Fatalf("pipes must not be reported as terminals")
	}
}

func TestNilFile(t *testing.T) {
	if IsTerminal(nil) {
		t.Fatalf("nil file must not be a terminal")
	}
}
