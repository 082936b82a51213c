package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// Load error codes, shared with the CLI.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002"
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006"
	ErrCodeBadEntity   = "E207"
)

// LoadError is a problem reading or decoding schema files.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDir loads every CUE file in dir as one instance and builds a registry
// from its top-level `entity` struct.
func LoadDir(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	return FromValue(ctx.BuildInstance(inst))
}

// LoadString builds a registry from CUE source. Used by tests and scenarios
// that carry their schema inline.
func LoadString(src string) (*Registry, error) {
	return FromValue(cuecontext.New().CompileString(src))
}

// FromValue decodes the `entity` struct of a built CUE value.
func FromValue(v cue.Value) (*Registry, error) {
	if err := v.Err(); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}

	entities := v.LookupPath(cue.ParsePath("entity"))
	if !entities.Exists() {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "no entity struct found in schema"}
	}

	iter, err := entities.Fields()
	if err != nil {
		return nil, cueLoadError(ErrCodeBadEntity, err)
	}

	var defs []EntityDef
	for iter.Next() {
		def, err := decodeEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "schema declares no entities"}
	}

	return NewRegistry(defs...)
}

func decodeEntity(name string, v cue.Value) (EntityDef, error) {
	def := EntityDef{
		Name:      name,
		Fields:    make(map[string]FieldDef),
		Relations: make(map[string]RelationDef),
	}

	var err error
	if def.Table, err = optionalString(v, "table"); err != nil {
		return def, err
	}
	if def.PrimaryKey, err = optionalString(v, "primary_key"); err != nil {
		return def, err
	}

	fields := v.LookupPath(cue.ParsePath("fields"))
	if fields.Exists() {
		iter, err := fields.Fields()
		if err != nil {
			return def, cueLoadError(ErrCodeBadEntity, err)
		}
		for iter.Next() {
			fd, err := decodeField(iter.Value())
			if err != nil {
				return def, err
			}
			def.Fields[iter.Label()] = fd
		}
	}
	if len(def.Fields) == 0 {
		return def, &LoadError{Code: ErrCodeBadEntity, Message: fmt.Sprintf("entity %q declares no fields", name), Pos: v.Pos()}
	}

	relations := v.LookupPath(cue.ParsePath("relations"))
	if relations.Exists() {
		iter, err := relations.Fields()
		if err != nil {
			return def, cueLoadError(ErrCodeBadEntity, err)
		}
		for iter.Next() {
			rd, err := decodeRelation(iter.Value())
			if err != nil {
				return def, err
			}
			def.Relations[iter.Label()] = rd
		}
	}

	return def, nil
}

// decodeField accepts either a bare type string or {type, check}.
func decodeField(v cue.Value) (FieldDef, error) {
	if s, err := v.String(); err == nil {
		return FieldDef{Type: FieldType(s)}, nil
	}

	typ, err := requiredString(v, "type")
	if err != nil {
		return FieldDef{}, err
	}
	check, err := optionalString(v, "check")
	if err != nil {
		return FieldDef{}, err
	}
	return FieldDef{Type: FieldType(typ), Check: check}, nil
}

func decodeRelation(v cue.Value) (RelationDef, error) {
	var rd RelationDef
	var err error

	if rd.Entity, err = requiredString(v, "entity"); err != nil {
		return rd, err
	}
	kind, err := requiredString(v, "kind")
	if err != nil {
		return rd, err
	}
	rd.Kind = Cardinality(kind)

	for _, f := range []struct {
		path string
		dst  *string
	}{
		{"foreign_key", &rd.ForeignKey},
		{"owner_key", &rd.OwnerKey},
		{"local_key", &rd.LocalKey},
	} {
		if *f.dst, err = optionalString(v, f.path); err != nil {
			return rd, err
		}
	}

	junction := v.LookupPath(cue.ParsePath("junction"))
	if junction.Exists() {
		j := &Junction{}
		if j.Table, err = requiredString(junction, "table"); err != nil {
			return rd, err
		}
		if j.LocalKey, err = requiredString(junction, "local_key"); err != nil {
			return rd, err
		}
		if j.ForeignKey, err = requiredString(junction, "foreign_key"); err != nil {
			return rd, err
		}
		rd.Junction = j
	}

	fields := v.LookupPath(cue.ParsePath("fields"))
	if fields.Exists() {
		list, err := fields.List()
		if err != nil {
			return rd, cueLoadError(ErrCodeBadEntity, err)
		}
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return rd, cueLoadError(ErrCodeBadEntity, err)
			}
			rd.Fields = append(rd.Fields, s)
		}
	}

	return rd, nil
}

func requiredString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", &LoadError{Code: ErrCodeBadEntity, Message: fmt.Sprintf("%s is required", path), Pos: v.Pos()}
	}
	s, err := f.String()
	if err != nil {
		return "", cueLoadError(ErrCodeBadEntity, err)
	}
	return s, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", cueLoadError(ErrCodeBadEntity, err)
	}
	return s, nil
}

// cueLoadError keeps the position of the first CUE error.
func cueLoadError(code string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// FindCUEFiles walks dir and returns every .cue file path.
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
	return files, err
}

// IsLoadError reports whether err is a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
