package finance

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/fintrack/go/apiclient"
)

// Dashboard preference keys.
const (
	ShowAISuggestions     = "show_ai_suggestions"
	ShowBudgetSummary     = "show_budget_summary"
	ShowIncomeExpense     = "show_income_expense"
	ShowTransactionList   = "show_transaction_list"
	ShowCategoryBreakdown = "show_category_breakdown"
)

var DashboardKeys = []string{
	ShowAISuggestions,
	ShowBudgetSummary,
	ShowIncomeExpense,
	ShowTransactionList,
	ShowCategoryBreakdown,
}

type Profile struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	Name       *string `json:"name"`
	Picture    *string `json:"picture"`
	CurrencyID *string `json:"currency_id"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// ProfileUpdate holds the profile fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Picture    *string `json:"picture,omitempty"`
	CurrencyID *string `json:"currency_id,omitempty"`
}

// UIPreferences is the free-form preference document. The "dashboard" entry
// maps DashboardKeys to booleans.
type UIPreferences map[string]any

// Dashboard returns the dashboard toggles that are set.
func (p UIPreferences) Dashboard() map[string]bool {
	out := map[string]bool{}
	m, ok := p["dashboard"].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range m {
		if b, ok := v.(bool); ok {
			out[k] = b
		}
	}
	return out
}

type Preferences struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	UIPreferences UIPreferences `json:"ui_preferences"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at"`
}

// PreferencesUpdate is merged into the stored preferences by the server.
type PreferencesUpdate struct {
	UIPreferences UIPreferences `json:"ui_preferences"`
}

type UserData struct {
	Profile     *Profile
	Preferences UIPreferences
}

type Users struct {
	api *apiclient.Client
}

func (u *Users) Profile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := u.api.GetJSON(ctx, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *Users) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	var out Profile
	if err := u.api.PutJSON(ctx, "/users/me", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *Users) Preferences(ctx context.Context) (*Preferences, error) {
	var out Preferences
	if err := u.api.GetJSON(ctx, "/user-preferences", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *Users) UpdatePreferences(ctx context.Context, update PreferencesUpdate) (*Preferences, error) {
	var out Preferences
	if err := u.api.PutJSON(ctx, "/user-preferences", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *Users) SetDashboardPreference(ctx context.Context, key string, value bool) (*Preferences, error) {
	return u.SetDashboardPreferences(ctx, map[string]bool{key: value})
}

// SetDashboardPreferences updates several dashboard toggles in one request.
func (u *Users) SetDashboardPreferences(ctx context.Context, prefs map[string]bool) (*Preferences, error) {
	dashboard := make(map[string]any, len(prefs))
	for k, v := range prefs {
		if !slices.Contains(DashboardKeys, k) {
			return nil, fmt.Errorf("finance: unknown dashboard preference %q", k)
		}
		dashboard[k] = v
	}
	return u.UpdatePreferences(ctx, PreferencesUpdate{
		UIPreferences: UIPreferences{"dashboard": dashboard},
	})
}

// Data fetches the profile and the preferences concurrently.
func (u *Users) Data(ctx context.Context) (*UserData, error) {
	var (
		profile *Profile
		prefs   *Preferences
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = u.Profile(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		prefs, err = u.Preferences(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &UserData{Profile: profile, Preferences: prefs.UIPreferences}, nil
}
