package builtins

import (
	"path/filepath"
	"strings"

	perrors "github.com/metaplate/metaplate/pkg/mtl/errors"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// FilepathProvider resolves {filepath} and its chainable attributes
// {name, stem, suffix, parent}, e.g. {filepath.parent.name}.
type FilepathProvider struct{}

func (FilepathProvider) Namespaces() []string {
	return []string{"filepath"}
}

func (FilepathProvider) Resolve(req *provider.Request) ([]string, bool, error) {
	value := req.File.Path()
	for _, attr := range req.Attributes {
		switch attr {
		case "name":
			value = filepath.Base(value)
		case "stem":
			base := filepath.Base(value)
			value = strings.TrimSuffix(base, filepath.Ext(base))
		case "suffix":
			value = filepath.Ext(value)
		case "parent":
			value = filepath.Dir(value)
		default:
			return nil, false, perrors.NewUnknownField(req.Namespace, attr)
		}
	}
	return []string{value}, true, nil
}
