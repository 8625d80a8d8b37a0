package finance

import (
	"context"
	"net/url"
	"time"

	"github.com/fintrack/go/apiclient"
)

type AccountType string

const (
	AccountCredit  AccountType = "credit"
	AccountSavings AccountType = "savings"
	AccountCurrent AccountType = "current"
)

type Account struct {
	ID        string      `json:"id"`
	LastFour  string      `json:"account_last_four"`
	BankName  string      `json:"bank_name"`
	Type      AccountType `json:"type"`
	UserID    string      `json:"user_id"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

type AccountWithStats struct {
	Account
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Savings float64 `json:"savings"`
}

type AccountList struct {
	Count int       `json:"count"`
	Items []Account `json:"items"`
}

type AccountStatsList struct {
	Count int                `json:"count"`
	Items []AccountWithStats `json:"items"`
}

// AccountQuery filters List. Zero fields are not sent.
type AccountQuery struct {
	Type   AccountType
	Bank   string
	Limit  int
	Offset int
}

func (q AccountQuery) values() url.Values {
	v := url.Values{}
	setString(v, "account_type", string(q.Type))
	setString(v, "bank_name", q.Bank)
	setInt(v, "limit", q.Limit)
	setInt(v, "offset", q.Offset)
	return v
}

type Accounts struct {
	api *apiclient.Client
}

// List returns the accounts of the user the access token belongs to.
func (a *Accounts) List(ctx context.Context, q AccountQuery) (*AccountList, error) {
	var out AccountList
	if err := a.api.GetJSON(ctx, "/accounts", q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Accounts) Get(ctx context.Context, id string) (*Account, error) {
	var out Account
	if err := a.api.GetJSON(ctx, "/accounts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Accounts) ByType(ctx context.Context, t AccountType) ([]Account, error) {
	list, err := a.List(ctx, AccountQuery{Type: t, Limit: bulkLimit})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (a *Accounts) ByBank(ctx context.Context, bank string) ([]Account, error) {
	list, err := a.List(ctx, AccountQuery{Bank: bank, Limit: bulkLimit})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// WithStats returns every account with its income, expense and savings over
// the range. Zero times leave the range open.
func (a *Accounts) WithStats(ctx context.Context, from, to time.Time) (*AccountStatsList, error) {
	var out AccountStatsList
	if err := a.api.GetJSON(ctx, "/accounts/stats/summary", dateRange(from, to), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
