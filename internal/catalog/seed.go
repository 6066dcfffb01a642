package catalog

import _ "embed"

//go:embed data/catalog.json
var seedCatalog []byte

// LoadSeed builds the Registry from the catalog definitions compiled into
// the binary. Deployments can override the set with CATALOG_PATH.
func LoadSeed() (*Registry, error) {
	return load(seedCatalog)
}
