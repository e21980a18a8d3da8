package scanner_test

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"

	"github.com/oscarlin/rplus/internal/filetest"
	"github.com/oscarlin/rplus/internal/maincmd"
)

var testUpdateScannerTests = flag.Bool("test.update-scanner-tests", false, "If set, replace expected scanner test results with actual results.")

// TestScan drives the lexer through maincmd.TokenizeFiles against the .rp
// fixtures in testdata/in, diffing stdout/stderr against the golden files in
// testdata/out -- the same golden-file harness the teacher's own
// lang/scanner/scanner_test.go uses, adapted to R+'s TokenizeFiles signature.
func TestScan(t *testing.T) {
	ctx := context.Background()
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".rp") {
		t.Run(fi.Name(), func(t *testing.T) {
			var buf, ebuf bytes.Buffer
			stdio := mainer.Stdio{
				Stdout: &buf,
				Stderr: &ebuf,
			}

			// error is ignored, we just want it printed to ebuf
			_ = maincmd.TokenizeFiles(ctx, stdio, filepath.Join(srcDir, fi.Name()))
			filetest.DiffOutput(t, fi, buf.String(), resultDir, testUpdateScannerTests)
			filetest.DiffErrors(t, fi, ebuf.String(), resultDir, testUpdateScannerTests)
		})
	}
}
