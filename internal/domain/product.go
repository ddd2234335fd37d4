package domain

import "time"

// Product описывает складскую позицию с текущим остатком.
type Product struct {
	ID int64
	// SKU — внешний уникальный идентификатор товара.
	SKU  string
	Name string
	// PriceMinor — цена за единицу в минимальных денежных единицах (например, копейки).
	PriceMinor int64
	// StockQuantity — количество доступных единиц. Инвариант: никогда не отрицательно.
	StockQuantity int64
	Active        bool
	// Version — токен оптимистической блокировки: Save сверяет версию и
	// инкрементирует её, сериализуя конкурентные изменения остатка.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты товара и возвращает список замечаний.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.SKU == "" {
		errs = append(errs, ErrProductSKURequired)
	}
	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrProductPriceNegative)
	}
	if p.StockQuantity < 0 {
		errs = append(errs, ErrProductStockNegative)
	}

	return errs
}
