package memory

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/resaller-shop/db"
	"github.com/xenking/resaller-shop/internal/domain/product"
)

type seedFile struct {
	Categories []string      `json:"categories"`
	Products   []productJSON `json:"products"`
}

type productJSON struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	Category      string              `json:"category"`
	Description   string              `json:"description"`
	Image         string              `json:"image"`
	Images        []string            `json:"images"`
	Rating        float64             `json:"rating"`
	Reviews       int                 `json:"reviews"`
	Stock         int                 `json:"stock"`
	Brand         string              `json:"brand"`
	Featured      bool                `json:"featured"`
	BestSeller    bool                `json:"best_seller"`
}

// LoadDefault builds a catalog from the embedded sample data.
func LoadDefault() (*Catalog, error) {
	return Decode(bytes.NewReader(db.SeedCatalog))
}

// LoadFile builds a catalog from a JSON seed file. Files ending in ".gz" are
// decompressed first. An empty path yields the embedded sample catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return LoadDefault()
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	c, err := Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return c, nil
}

// Decode parses a seed document and validates every product.
func Decode(r io.Reader) (*Catalog, error) {
	var seed seedFile
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}

	products := make([]product.Product, 0, len(seed.Products))
	for i, pj := range seed.Products {
		p, err := pj.toDomain()
		if err != nil {
			return nil, errors.Wrapf(err, "product #%d", i)
		}
		products = append(products, p)
	}

	return New(seed.Categories, products)
}

func (pj productJSON) toDomain() (product.Product, error) {
	switch {
	case pj.ID == "":
		return product.Product{}, errors.New("id is required")
	case pj.Name == "":
		return product.Product{}, errors.Errorf("product %s: name is required", pj.ID)
	case pj.Price.IsNegative():
		return product.Product{}, errors.Errorf("product %s: negative price", pj.ID)
	case pj.OriginalPrice.Valid && pj.OriginalPrice.Decimal.IsNegative():
		return product.Product{}, errors.Errorf("product %s: negative original price", pj.ID)
	case pj.Rating < 0 || pj.Rating > 5:
		return product.Product{}, errors.Errorf("product %s: rating %.1f out of range", pj.ID, pj.Rating)
	case pj.Reviews < 0 || pj.Stock < 0:
		return product.Product{}, errors.Errorf("product %s: negative counter", pj.ID)
	}

	images := pj.Images
	if len(images) == 0 {
		if pj.Image == "" {
			return product.Product{}, errors.Errorf("product %s: at least one image is required", pj.ID)
		}
		images = []string{pj.Image}
	}
	image := pj.Image
	if image == "" {
		image = images[0]
	}

	return product.Product{
		ID:            pj.ID,
		Name:          pj.Name,
		Price:         pj.Price,
		OriginalPrice: pj.OriginalPrice,
		Category:      pj.Category,
		Description:   pj.Description,
		Image:         image,
		Images:        images,
		Rating:        pj.Rating,
		Reviews:       pj.Reviews,
		Stock:         pj.Stock,
		Brand:         pj.Brand,
		Featured:      pj.Featured,
		BestSeller:    pj.BestSeller,
	}, nil
}
