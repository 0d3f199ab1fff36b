// Package db provides the embedded sample catalog.
package db

import _ "embed"

// SeedCatalog contains the sample product catalog served when no catalog
// file is configured.
//
//go:embed seed/products.json
var SeedCatalog []byte
