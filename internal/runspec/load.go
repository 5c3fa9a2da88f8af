package runspec

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"sglxpipe/internal/services"
)

// LoadTable reads a run table from a .toml ([[run]]) or .yaml/.yml (runs:) file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, services.Wrap(services.ErrNotFound, "runspec", "load", "read run table", err)
	}
	return DecodeTable(filepath.Ext(path), data)
}

// DecodeTable decodes run table bytes according to the file extension.
func DecodeTable(ext string, data []byte) (Table, error) {
	var table Table
	switch strings.ToLower(ext) {
	case ".toml":
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&table); err != nil {
			return Table{}, services.Wrap(services.ErrValidation, "runspec", "decode", "parse toml run table", err)
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&table); err != nil {
			return Table{}, services.Wrap(services.ErrValidation, "runspec", "decode", "parse yaml run table", err)
		}
	default:
		return Table{}, services.Wrap(services.ErrValidation, "runspec", "decode",
			fmt.Sprintf("unsupported run table extension %q", ext), nil)
	}
	return table, nil
}
