package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"dubnacoin/internal/domain"
)

const (
	skinPrefix = "skin_"
	skinExt    = ".png"
)

// SkinItem is one purchasable skin.
type SkinItem struct {
	ID    string `json:"id"`
	Price int64  `json:"price"`
	Image string `json:"image"`
}

// SkinCatalog prices skins from asset file names: skin_<price>.png costs
// <price> coins. The asset must exist at purchase time.
type SkinCatalog struct {
	dir string
}

// LoadSkinCatalog checks that dir is readable. A missing directory yields an
// empty catalog.
func LoadSkinCatalog(dir string) (*SkinCatalog, error) {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return &SkinCatalog{dir: dir}, nil
	case err != nil:
		return nil, err
	case !info.IsDir():
		return nil, fmt.Errorf("skins dir %q is not a directory", dir)
	}
	return &SkinCatalog{dir: dir}, nil
}

// ParseSkinPrice extracts the price from a skin id of the form skin_<price>.
func ParseSkinPrice(skinID string) (int64, error) {
	raw, ok := strings.CutPrefix(skinID, skinPrefix)
	if !ok || raw == "" {
		return 0, domain.ErrInvalidItem
	}
	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || price <= 0 {
		return 0, domain.ErrInvalidItem
	}
	return price, nil
}

// Price returns the price of skinID, or ErrInvalidItem when the id is
// malformed or has no asset.
func (c *SkinCatalog) Price(skinID string) (int64, error) {
	price, err := ParseSkinPrice(skinID)
	if err != nil {
		return 0, err
	}
	if strings.ContainsAny(skinID, `/\`) {
		return 0, domain.ErrInvalidItem
	}
	info, err := os.Stat(filepath.Join(c.dir, skinID+skinExt))
	if err != nil || info.IsDir() {
		return 0, domain.ErrInvalidItem
	}
	return price, nil
}

// Items lists the catalog sorted by price.
func (c *SkinCatalog) Items() ([]SkinItem, error) {
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return []SkinItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	items := []SkinItem{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), skinExt) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), skinExt)
		price, err := ParseSkinPrice(id)
		if err != nil {
			continue
		}
		items = append(items, SkinItem{ID: id, Price: price, Image: e.Name()})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Price != items[j].Price {
			return items[i].Price < items[j].Price
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}
