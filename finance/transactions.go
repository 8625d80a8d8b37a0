package finance

import (
	"context"
	"math"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fintrack/go/apiclient"
)

type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type Transaction struct {
	ID            string          `json:"id"`
	Amount        float64         `json:"amount"`
	TransactionID *string         `json:"transaction_id"`
	Type          TransactionType `json:"type"`
	Date          string          `json:"date"`
	TransactorID  string          `json:"transactor_id"`
	CategoryID    string          `json:"category_id"`
	Description   string          `json:"description"`
	Confidence    string          `json:"confidence"`
	CurrencyID    string          `json:"currency_id"`
	UserID        string          `json:"user_id"`
	MessageID     string          `json:"message_id"`
}

type TransactionList struct {
	Count int           `json:"count"`
	Items []Transaction `json:"items"`
}

// TransactionQuery filters List. Zero fields are not sent.
type TransactionQuery struct {
	DateFrom            time.Time
	DateTo              time.Time
	DescriptionContains string
	AmountMin           *float64
	AmountMax           *float64
	Type                TransactionType
	UserID              string
	TransactorID        string
	CategoryID          string
	Limit               int
	Offset              int
}

func (q TransactionQuery) values() url.Values {
	v := url.Values{}
	setDate(v, "date_from", q.DateFrom)
	setDate(v, "date_to", q.DateTo)
	setString(v, "description_contains", q.DescriptionContains)
	setFloat(v, "amount_min", q.AmountMin)
	setFloat(v, "amount_max", q.AmountMax)
	setString(v, "type", string(q.Type))
	setString(v, "user_id", q.UserID)
	setString(v, "transactor_id", q.TransactorID)
	setString(v, "category_id", q.CategoryID)
	setInt(v, "limit", q.Limit)
	setInt(v, "offset", q.Offset)
	return v
}

// Totals is the income and expense of a period. Expense is positive.
type Totals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

type Transactions struct {
	api *apiclient.Client
	now func() time.Time
}

func (t *Transactions) List(ctx context.Context, q TransactionQuery) (*TransactionList, error) {
	var out TransactionList
	if err := t.api.GetJSON(ctx, "/transactions", q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Transactions) Get(ctx context.Context, id string) (*Transaction, error) {
	var out Transaction
	if err := t.api.GetJSON(ctx, "/transactions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IncomeExpenseTotals sums the user's income and expense between from and to
// inclusive. Only the first bulkLimit transactions of each type are counted.
func (t *Transactions) IncomeExpenseTotals(ctx context.Context, userID string, from, to time.Time) (Totals, error) {
	var income, expense []Transaction

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(typ TransactionType, dst *[]Transaction) func() error {
		return func() error {
			list, err := t.List(gctx, TransactionQuery{
				UserID:   userID,
				DateFrom: from,
				DateTo:   to,
				Type:     typ,
				Limit:    bulkLimit,
			})
			if err != nil {
				return err
			}
			*dst = list.Items
			return nil
		}
	}
	g.Go(fetch(Income, &income))
	g.Go(fetch(Expense, &expense))

	if err := g.Wait(); err != nil {
		return Totals{}, err
	}

	var totals Totals
	for _, tx := range income {
		totals.Income += tx.Amount
	}
	for _, tx := range expense {
		totals.Expense += math.Abs(tx.Amount)
	}
	return totals, nil
}

// MonthTotals returns the totals of the calendar month containing month.
func (t *Transactions) MonthTotals(ctx context.Context, userID string, month time.Time) (Totals, error) {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	last := first.AddDate(0, 1, -1)
	return t.IncomeExpenseTotals(ctx, userID, first, last)
}

// Recent returns up to limit transactions dated today or earlier.
func (t *Transactions) Recent(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	list, err := t.List(ctx, TransactionQuery{
		UserID: userID,
		DateTo: t.now(),
		Limit:  orDefault(limit),
	})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Upcoming returns up to limit transactions dated tomorrow or later.
func (t *Transactions) Upcoming(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	list, err := t.List(ctx, TransactionQuery{
		UserID:   userID,
		DateFrom: t.now().AddDate(0, 0, 1),
		Limit:    orDefault(limit),
	})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func orDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
