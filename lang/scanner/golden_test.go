package scanner_test

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivscript/iv/internal/filetest"
	"github.com/ivscript/iv/lang/scanner"
	"github.com/ivscript/iv/lang/token"
	"github.com/stretchr/testify/require"
)

var testUpdateScannerTests = flag.Bool("test.update-scanner-tests", false, "If set, replace expected scanner test results with actual results.")

// TestScanGolden scans the source files in testdata/*.js and compares the
// token stream against the corresponding golden file in testdata/want.
func TestScanGolden(t *testing.T) {
	dir := "testdata"
	for _, fi := range filetest.SourceFiles(t, dir, ".js") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			require.NoError(t, err)

			fset := token.NewFileSet()
			file := fset.AddFile(fi.Name(), -1, len(src))

			var errs token.ErrorList
			var sc scanner.Scanner
			sc.Init(file, src, func(pos token.Position, msg string) { errs.Add(pos, msg) })

			var sb strings.Builder
			for {
				var v token.Value
				tok := sc.Scan(&v)
				sb.WriteString(tok.String())
				if lit := tok.Literal(v); lit != "" {
					sb.WriteByte(' ')
					sb.WriteString(lit)
				}
				sb.WriteByte('\n')
				if tok == token.EOF {
					break
				}
			}
			require.Empty(t, errs)
			filetest.DiffOutput(t, fi, sb.String(), filepath.Join(dir, "want"), testUpdateScannerTests)
		})
	}
}
