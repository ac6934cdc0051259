// Command bootstrap creates an account (or reuses an existing one) and
// prints a fresh API key. It is meant for first deployments and local
// development:
//
//	BOOTSTRAP_PASSWORD=... bootstrap -email ana@example.com -name "Ana" -scopes read,write,admin
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/auth"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

type output struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	KeyID     string   `json:"key_id"`
	Key       string   `json:"key"`
	KeyPrefix string   `json:"key_prefix"`
	Scopes    []string `json:"scopes"`
	Tier      string   `json:"rate_limit_tier"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "", "Account email")
		name        = flag.String("name", "", "Account holder name (new accounts only)")
		keyName     = flag.String("key-name", "bootstrap", "API key name")
		scopesInput = flag.String("scopes", model.ScopeAdmin+","+model.ScopeWrite+","+model.ScopeRead, "Comma-separated scopes (read,write,admin)")
		tier        = flag.String("tier", model.TierUnlimited, "Rate limit tier (standard,bulk,unlimited)")
		test        = flag.Bool("test", false, "Mint an mg_test_ key")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	password := os.Getenv("BOOTSTRAP_PASSWORD")
	if err := run(*databaseURL, *email, password, *name, *keyName, *scopesInput, *tier, *test, *format); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(databaseURL, email, password, name, keyName, scopesInput, tier string, test bool, format string) error {
	switch {
	case databaseURL == "":
		return errors.New("DATABASE_URL is required")
	case email == "":
		return errors.New("-email is required")
	case password == "":
		return errors.New("BOOTSTRAP_PASSWORD is required")
	}
	if format != "plain" && format != "json" {
		return errors.New("invalid format; use plain or json")
	}

	scopes, err := parseScopes(scopesInput)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	env := auth.EnvLive
	if test {
		env = auth.EnvTest
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := service.NewAccountService(repo, nil, env, logger)

	userID, err := ensureAccount(ctx, repo, accounts, email, password, name)
	if err != nil {
		return err
	}

	issued, err := accounts.CreateKey(ctx, userID, service.CreateKeyInput{
		Name:          keyName,
		Scopes:        scopes,
		RateLimitTier: tier,
	})
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	out := output{
		UserID:    userID,
		Email:     email,
		KeyID:     issued.Key.ID,
		Key:       issued.Plaintext,
		KeyPrefix: issued.Key.KeyPrefix,
		Scopes:    issued.Key.Scopes,
		Tier:      issued.Key.RateLimitTier,
	}
	if format == "plain" {
		fmt.Println(out.Key)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ensureAccount registers the account, or checks the password of the
// existing one when the email is taken.
func ensureAccount(ctx context.Context, repo *repository.Repository, accounts *service.AccountService, email, password, name string) (string, error) {
	if name == "" {
		name = email
	}
	issued, err := accounts.Register(ctx, service.RegisterInput{Email: email, Password: password, Name: name})
	if err == nil {
		return issued.User.ID, nil
	}
	if !errors.Is(err, service.ErrEmailExists) {
		return "", fmt.Errorf("register: %w", err)
	}

	user, err := repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if ok, err := auth.VerifySecret(password, user.PasswordHash); err != nil || !ok {
		return "", service.ErrInvalidCredentials
	}
	return user.ID, nil
}

func parseScopes(input string) ([]string, error) {
	var scopes []string
	for _, part := range strings.Split(input, ",") {
		scope := strings.TrimSpace(part)
		if scope == "" {
			continue
		}
		if !model.IsValidScope(scope) {
			return nil, fmt.Errorf("invalid scope: %s", scope)
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		return nil, errors.New("at least one scope is required")
	}
	return scopes, nil
}
