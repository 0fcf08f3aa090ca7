package orders

// Destinations shared with the stock ledger consumer. The same message shape
// serves both; the destination distinguishes deduction from restore.
const (
	DestStockDeduction = "stock-deduction"
	DestStockRestore   = "stock-restore"
)

// StockItem is one line of a stock movement.
type StockItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// StockMessage instructs the stock ledger to move inventory for an order.
type StockMessage struct {
	OrderID int64       `json:"order_id"`
	Items   []StockItem `json:"items"`
}

func stockItems(items []Item) []StockItem {
	out := make([]StockItem, 0, len(items))
	for _, it := range items {
		out = append(out, StockItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}
