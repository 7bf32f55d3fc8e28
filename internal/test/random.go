package test

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

var products = []string{"Margherita", "Calabresa", "Portuguesa", "Quatro Queijos", "Frango com Catupiry", "Refrigerante 2L"}

// RandomOrder builds an order with the given id and status and pseudo-random items.
func RandomOrder(id int64, status model.OrderStatus, createdAt time.Time) model.Order {
	items := make([]model.OrderItem, 1+randomIntn(3))
	total := decimal.Zero
	for i := range items {
		qty := 1 + randomIntn(3)
		price := decimal.New(int64(2990+randomIntn(3000)), -2)
		items[i] = model.OrderItem{ProductName: products[randomIntn(len(products))], Quantity: qty, UnitSubtotal: price}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return model.Order{
		ID:            id,
		OrderNumber:   fmt.Sprintf("P%04d", id),
		Status:        status,
		CustomerName:  fmt.Sprintf("Cliente %d", id),
		Items:         items,
		TotalAmount:   total,
		PaymentMethod: "pix",
		CreatedAt:     createdAt,
	}
}

func randomIntn(n int) int {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Intn(n)
}
