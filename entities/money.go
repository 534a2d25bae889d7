package entities

import "github.com/shopspring/decimal"

type Money struct {
	Amount   decimal.Decimal `json:"amount" db:"amount"`
	Currency string          `json:"currency" db:"currency"`
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) Times(quantity int) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(int64(quantity))),
		Currency: m.Currency,
	}
}
