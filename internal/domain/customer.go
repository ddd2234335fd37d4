package domain

import "time"

// Customer описывает покупателя, оформляющего заказы.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты клиента и возвращает список замечаний.
func (c *Customer) ValidateInvariants() []error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if c.Email == "" {
		errs = append(errs, ErrCustomerEmailRequired)
	}

	return errs
}
