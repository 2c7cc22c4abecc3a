package seed

import (
	"context"
	"fmt"

	"github.com/finance-tracker/internal/models"
	"github.com/finance-tracker/internal/service"
	"github.com/finance-tracker/pkg/logger"
	"github.com/shopspring/decimal"
)

// AdminEmail is the login of the demo user
const AdminEmail = "admin@personalfinance.com"

type sampleAccount struct {
	name        string
	description string
	accountType models.AccountType
	balance     string
}

var sampleAccounts = []sampleAccount{
	{"Compte Courant Principal", "Compte principal pour les dépenses quotidiennes", models.AccountTypeChecking, "2500.00"},
	{"Livret A", "Épargne de précaution", models.AccountTypeSavings, "5000.00"},
	{"Carte de Crédit", "Carte de crédit principale", models.AccountTypeCredit, "-500.00"},
}

// Demo creates the admin user and its sample accounts on an empty database.
// It returns false when users already exist.
func Demo(ctx context.Context, auth *service.AuthService, accounts *service.AccountService, password string) (bool, error) {
	count, err := auth.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	resp, err := auth.Register(ctx, &service.RegisterRequest{
		Email:     AdminEmail,
		Password:  password,
		FirstName: "Admin",
		LastName:  "User",
	})
	if err != nil {
		return false, fmt.Errorf("register admin: %w", err)
	}

	for _, sa := range sampleAccounts {
		description := sa.description
		_, err := accounts.CreateAccount(ctx, resp.User.ID, &service.CreateAccountRequest{
			Name:           sa.name,
			Description:    &description,
			Type:           sa.accountType,
			InitialBalance: decimal.RequireFromString(sa.balance),
		})
		if err != nil {
			return false, fmt.Errorf("create account %q: %w", sa.name, err)
		}
	}

	logger.Info("[Seed] created demo user %s with %d accounts", AdminEmail, len(sampleAccounts))
	return true, nil
}
