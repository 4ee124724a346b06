package engine

import (
	"path/filepath"
	"strings"

	"github.com/microscaler/secret-manager-controller/internal/overlay"
	"github.com/microscaler/secret-manager-controller/internal/parser"
)

// classifyFile maps a rendered Secret data key's filename to the parser
// format it should be decoded with. The convention follows the overlay
// tool's own naming: ".env" files are flat key=value, ".yaml"/".yml" files
// are hierarchical trees, and ".properties" files are routed to the config
// bundle instead of the secret bundle.
func classifyFile(name string) parser.Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return parser.FormatTree
	case ".properties":
		return parser.FormatProperties
	default:
		return parser.FormatEnv
	}
}

// buildBundles parses every rendered Secret's data files into one merged
// secrets Bundle and one merged config Bundle, per §4.4's data flow into
// the parser. Env and tree files merge into secrets (tree wins on
// collision); properties files merge separately into config.
func buildBundles(secrets []overlay.Secret) (secretBundle, configBundle *parser.Bundle, err error) {
	env := parser.NewBundle()
	tree := parser.NewBundle()
	config := parser.NewBundle()

	for _, secret := range secrets {
		for name, data := range secret.Data {
			format := classifyFile(name)
			parsed, perr := parser.Parse(format, data)
			if perr != nil {
				return nil, nil, perr
			}
			switch format {
			case parser.FormatTree:
				for _, k := range parsed.Keys() {
					e, _ := parsed.Get(k)
					tree.Set(k, e)
				}
			case parser.FormatProperties:
				for _, k := range parsed.Keys() {
					e, _ := parsed.Get(k)
					config.Set(k, e)
				}
			default:
				for _, k := range parsed.Keys() {
					e, _ := parsed.Get(k)
					env.Set(k, e)
				}
			}
		}
	}

	return parser.Merge(env, tree), config, nil
}
