package config

import (
	_ "embed"
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/fs"
)

//go:embed schema.cue
var schemaSource []byte

// LoadFile reads a CUE parameter file from fsys and returns its params as
// strings ready for Resolve.
//
// The file is unified with the embedded schema, which closes the set of
// parameter names and constrains their types, and its version must be
// compatible with SchemaVersion.
func LoadFile(fsys fs.Filesystem, path string) (map[string]string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig,
			"failed to read parameter file", map[string]interface{}{"path": path})
	}
	return Parse(data, path)
}

// Parse validates CUE source against the embedded schema and extracts params.
// filename is used in error positions only.
func Parse(data []byte, filename string) (map[string]string, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "embedded schema does not compile")
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, schemaError(err, "failed to parse parameter file", filename)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, schemaError(err, "parameter file does not match schema", filename)
	}

	version, err := unified.LookupPath(cue.ParsePath("version")).String()
	if err != nil {
		return nil, schemaError(err, "parameter file has no version", filename)
	}
	ok, err := IsCompatible(version)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig,
			"invalid parameter file version", map[string]interface{}{"path": filename})
	}
	if !ok {
		return nil, errors.New(errors.CodeInvalidConfig,
			fmt.Sprintf("%s: version %s is not compatible with schema %s", filename, version, SchemaVersion))
	}

	return decodeParams(unified.LookupPath(cue.ParsePath("params")))
}

func decodeParams(v cue.Value) (map[string]string, error) {
	params := make(map[string]string)
	if !v.Exists() {
		return params, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSchemaFailed, "params is not a struct")
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		field := iter.Value()

		var s string
		switch field.Kind() {
		case cue.StringKind:
			s, err = field.String()
		case cue.IntKind:
			var n int64
			n, err = field.Int64()
			s = strconv.FormatInt(n, 10)
		case cue.BoolKind:
			var b bool
			b, err = field.Bool()
			s = strconv.FormatBool(b)
		default:
			err = fmt.Errorf("unsupported kind %s", field.Kind())
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeSchemaFailed, "param %s", name)
		}
		params[name] = s
	}
	return params, nil
}

func schemaError(err error, msg, filename string) error {
	return errors.WrapWithContext(err, errors.CodeSchemaFailed, msg, map[string]interface{}{
		"path":    filename,
		"details": cueerrors.Details(err, nil),
	})
}
