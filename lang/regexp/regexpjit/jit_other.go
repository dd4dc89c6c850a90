//go:build !amd64

package regexpjit

import "github.com/ivscript/iv/lang/regexp"

func compileNative(program *regexp.Program) (nativeProgram, error) {
	return nil, nil
}
