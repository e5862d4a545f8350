package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const spriteURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon"

// DemoItems returns the offline demo catalog: twenty "pokemon-N" items of
// type normal with prices 10..29 and stock 5..24.
func DemoItems() []Item {
	items := make([]Item, 20)
	for i := range items {
		id := i + 1
		items[i] = Item{
			ID:    id,
			Name:  fmt.Sprintf("pokemon-%d", id),
			Types: []string{"normal"},
			Price: decimal.NewFromInt(int64(10 + i)),
			Stock: 5 + i,
			Image: fmt.Sprintf("%s/%d.png", spriteURL, id),
		}
	}
	return items
}

// NewDemoProvider returns a StaticProvider over DemoItems.
func NewDemoProvider() *StaticProvider {
	return &StaticProvider{Items: DemoItems()}
}
