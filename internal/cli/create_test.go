package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestRun_RequiresTmpFinalDirAndFilename(t *testing.T) {
	var out, errOut bytes.Buffer

	exitCode := Run(nil, &out, &errOut, []string{"plot", "-k", "18"}, nil, nil)

	if exitCode != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode)
	}

	if !bytes.Contains(errOut.Bytes(), []byte("required")) {
		t.Fatalf("stderr = %q, want a message about required flags", errOut.String())
	}
}

func TestRun_RejectsNonHexMemo(t *testing.T) {
	dir := t.TempDir()

	var out, errOut bytes.Buffer

	args := []string{
		"plot",
		"--tmp-dir", dir,
		"--final-dir", dir,
		"--filename", "x.plot",
		"-k", "18",
		"--memo", "not hex",
	}

	exitCode := Run(nil, &out, &errOut, args, nil, nil)
	if exitCode != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode)
	}
}

func TestRun_PrintsHelpWithoutRunning(t *testing.T) {
	var out, errOut bytes.Buffer

	exitCode := Run(nil, &out, &errOut, []string{"plot", "--help"}, nil, nil)

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}

	if out.Len() == 0 {
		t.Fatal("expected usage text on stdout")
	}
}

func TestRun_CreatesAPlotFileOnSuccess(t *testing.T) {
	tmpDir := t.TempDir()
	finalDir := t.TempDir()

	var out, errOut bytes.Buffer

	args := []string{
		"plot",
		"--tmp-dir", tmpDir,
		"--final-dir", finalDir,
		"--filename", "test.plot",
		"-k", "18",
		"--memo", "aabbcc",
		"--num-buckets", "16",
		"--no-progress",
	}

	exitCode := Run(nil, &out, &errOut, args, nil, nil)
	if exitCode != 0 {
		t.Fatalf("exit code = %d, stderr = %q", exitCode, errOut.String())
	}

	path := filepath.Join(finalDir, "test.plot")
	if out.String() != path+"\n" {
		t.Fatalf("stdout = %q, want %q", out.String(), path+"\n")
	}
}
