package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadDir compiles the CUE package in dir as one dataset.
func LoadDir(dir string) (*Compiled, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}
	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v)
}

// LoadFiles compiles the given CUE files as one dataset. The files are
// unified, so they may split a dataset between them but must agree where
// they overlap.
func LoadFiles(paths ...string) (*Compiled, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no dataset files given")
	}
	ctx := cuecontext.New()
	var v cue.Value
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read dataset: %w", err)
		}
		fv := ctx.CompileBytes(data, cue.Filename(p))
		if err := fv.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		if i == 0 {
			v = fv
		} else {
			v = v.Unify(fv)
		}
	}
	return Compile(v)
}

// FindCUEFiles walks dir and returns every .cue file path, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
