package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartTotal_Empty(t *testing.T) {
	c := &Cart{}
	assert.True(t, c.Total().Equal(decimal.Zero))
}

func TestCartTotal_ExactDecimal(t *testing.T) {
	c := &Cart{Items: []Item{
		{Quantity: 2, PriceAtAdd: decimal.RequireFromString("100.50")},
	}}
	assert.Equal(t, "201.00", c.Total().StringFixed(2))
}

func TestCartTotal_MultipleItems(t *testing.T) {
	// 3 × 0.10 would drift under binary floats; decimals must stay exact.
	c := &Cart{Items: []Item{
		{Quantity: 3, PriceAtAdd: decimal.RequireFromString("0.10")},
		{Quantity: 1, PriceAtAdd: decimal.RequireFromString("19.99")},
		{Quantity: 2, PriceAtAdd: decimal.RequireFromString("5.25")},
	}}
	assert.Equal(t, "30.79", c.Total().StringFixed(2))
}

func TestItemTotal(t *testing.T) {
	it := Item{Quantity: 4, PriceAtAdd: decimal.RequireFromString("2.50")}
	assert.Equal(t, "10.00", it.Total().StringFixed(2))
}
