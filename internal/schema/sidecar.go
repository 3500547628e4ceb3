package schema

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docdex/internal/errors"
)

// SidecarName is the schema fingerprint file written next to the engine's
// own index files. The engine owns everything else in the directory.
const SidecarName = "schema.yaml"

// sidecar is the persisted subset of IndexConfig that must match on
// every reopen. Tuning knobs (reload, queue sizes) may change freely.
type sidecar struct {
	Fields   []FieldConfig `yaml:"fields"`
	Language string        `yaml:"language"`
	IDField  string        `yaml:"id_field"`
}

// WriteSidecar persists the schema fingerprint into the index directory.
func WriteSidecar(dir string, cfg IndexConfig) error {
	data, err := yaml.Marshal(sidecar{
		Fields:   cfg.Fields,
		Language: cfg.Language,
		IDField:  cfg.IDField,
	})
	if err != nil {
		return errors.ConfigError("cannot encode schema sidecar", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SidecarName), data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeEngineFailed, err)
	}
	return nil
}

// VerifySidecar checks a previously persisted fingerprint against cfg.
// A missing sidecar passes (pre-existing index created out-of-band); a
// mismatched one fails with an incompatible-schema error.
func VerifySidecar(dir string, cfg IndexConfig) error {
	data, err := os.ReadFile(filepath.Join(dir, SidecarName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeEngineFailed, err)
	}
	var persisted sidecar
	if err := yaml.Unmarshal(data, &persisted); err != nil {
		return errors.New(errors.ErrCodeSchemaIncompatible,
			"schema sidecar is corrupt", err)
	}
	supplied := sidecar{Fields: cfg.Fields, Language: cfg.Language, IDField: cfg.IDField}
	if !sidecarEqual(persisted, supplied) {
		return errors.Newf(errors.ErrCodeSchemaIncompatible,
			"index at %s was created with a different schema", dir)
	}
	return nil
}

func sidecarEqual(a, b sidecar) bool {
	if a.Language != b.Language || a.IDField != b.IDField || len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	return true
}
