package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Product описывает позицию статического каталога товаров.
type Product struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
}

// Catalog — read-only таблица товаров, загружается один раз при старте процесса.
type Catalog struct {
	products map[string]Product
}

// New собирает каталог из списка товаров. Дубликаты id перезаписываются последним.
func New(products []Product) *Catalog {
	index := make(map[string]Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return &Catalog{products: index}
}

// FromJSON загружает каталог из JSON-массива товаров.
func FromJSON(data []byte) (*Catalog, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode product catalog: %w", err)
	}
	return New(products), nil
}

// Default возвращает встроенный каталог для локальной разработки и тестов.
func Default() *Catalog {
	return New([]Product{
		{ID: "1", Name: "Wireless Mouse", UnitPrice: 29.99},
		{ID: "2", Name: "Mechanical Keyboard", UnitPrice: 89.99},
		{ID: "3", Name: "USB-C Hub", UnitPrice: 49.99},
		{ID: "4", Name: "Laptop Stand", UnitPrice: 39.99},
		{ID: "5", Name: "HD Webcam", UnitPrice: 59.99},
	})
}

// Lookup возвращает товар по id.
func (c *Catalog) Lookup(id string) (Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// All возвращает все товары, отсортированные по id.
func (c *Catalog) All() []Product {
	result := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
