package domain

// Product — доменная сущность товара каталога.
// StockQuantity может стать отрицательным после гонки
// оформления заказов, это наблюдаемое состояние, а не ошибка.
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Price         float64 `json:"price"`
	StockQuantity int64   `json:"stock_quantity"`
}

// ProductPage — страница каталога с общим количеством товаров.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}
