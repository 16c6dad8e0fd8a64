package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitwise74/account-api/aws"
	"bitwise74/account-api/db"
	"bitwise74/account-api/internal/account"
	"bitwise74/account-api/internal/apikey"
	"bitwise74/account-api/internal/notify"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/internal/store/mongostore"
	"bitwise74/account-api/internal/store/sqlstore"
	"bitwise74/account-api/pkg/security"

	"github.com/spf13/viper"
	"gorm.io/gorm"
)

type Stores struct {
	Users         store.Users
	APIKeys       store.APIKeys
	Notifications store.Notifications
	Close         func() error
}

type Deps struct {
	Stores
	Secrets  *security.SecretCache
	Argon    *security.ArgonHash
	Sessions *security.Sessions
	Ledger   *notify.Ledger
	Accounts *account.Service
	Keys     *apikey.Service
	Now      func() time.Time
}

type Options struct {
	Stores  Stores
	Secrets *security.SecretCache
	Mailer  service.Mailer
	Links   *service.Links
	// Defaults to time.Now
	Now             func() time.Time
	HashConcurrency int64
	// Built from HashConcurrency when nil
	Argon *security.ArgonHash
}

// SecretName returns the configured name of a secret, e.g. "jwt"
func SecretName(key string) string {
	return viper.GetString("secrets.names." + key)
}

// Assemble wires the services on top of already opened stores. API keys are
// encrypted at rest with the api_key secret.
func Assemble(o Options) *Deps {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Links == nil {
		o.Links = service.NewLinks()
	}

	keys := store.NewEncryptedAPIKeys(o.Stores.APIKeys,
		security.NewKeyCipher(o.Secrets, SecretName("api_key")))

	argon := o.Argon
	if argon == nil {
		argon = security.New(o.HashConcurrency)
	}
	sessions := security.NewSessions(o.Secrets, SecretName("jwt"), o.Now)
	ledger := notify.New(o.Stores.Notifications, o.Stores.Users, o.Now)

	d := &Deps{
		Stores:   o.Stores,
		Secrets:  o.Secrets,
		Argon:    argon,
		Sessions: sessions,
		Ledger:   ledger,
		Now:      o.Now,
	}
	d.Stores.APIKeys = keys

	d.Accounts = account.New(account.Config{
		Users:         o.Stores.Users,
		APIKeys:       keys,
		Notifications: o.Stores.Notifications,
		Ledger:        ledger,
		Mailer:        o.Mailer,
		Hasher:        argon,
		Sessions:      sessions,
		Links:         o.Links,
		Now:           o.Now,
	})

	d.Keys = apikey.New(apikey.Config{
		Users:       o.Stores.Users,
		APIKeys:     keys,
		Ledger:      ledger,
		Mailer:      o.Mailer,
		Credentials: d.Accounts,
		Links:       o.Links,
		Now:         o.Now,
	})

	return d
}

// NewSecrets builds the secret cache for the configured provider
func NewSecrets(ctx context.Context) (*security.SecretCache, error) {
	switch viper.GetString("secrets.provider") {
	case "aws":
		c, err := aws.NewSecrets(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize secrets manager client, %w", err)
		}
		return security.NewSecretCache(c), nil
	default:
		src := security.StaticSource{}
		for _, k := range []string{"jwt", "api_key", "database", "mail"} {
			if val := viper.GetString("secrets.values." + k); val != "" {
				src[SecretName(k)] = val
			}
		}
		return security.NewSecretCache(src), nil
	}
}

// OpenStores connects the configured database backend
func OpenStores(ctx context.Context, secrets *security.SecretCache) (*Stores, error) {
	driver := viper.GetString("database.driver")
	uri := viper.GetString("database.uri")

	if strings.Contains(uri, db.PasswordPlaceholder) {
		password, err := secrets.Get(ctx, SecretName("database"))
		if err != nil {
			return nil, err
		}
		uri = db.URI(uri, password)
	}

	if driver == "mongo" {
		m, err := db.NewMongo(db.MongoConfig{
			URI:      uri,
			Database: viper.GetString("database.name"),
			Timeout:  viper.GetDuration("database.timeout"),
		})
		if err != nil {
			return nil, err
		}

		return &Stores{
			Users:         mongostore.NewUsers(m.Users),
			APIKeys:       mongostore.NewAPIKeys(m.APIKeys),
			Notifications: mongostore.NewNotifications(m.Notifications),
			Close:         m.Close,
		}, nil
	}

	g, err := db.Open(driver, uri)
	if err != nil {
		return nil, err
	}

	return SQLStores(g), nil
}

// SQLStores wraps an opened gorm connection
func SQLStores(g *gorm.DB) *Stores {
	return &Stores{
		Users:         sqlstore.NewUsers(g),
		APIKeys:       sqlstore.NewAPIKeys(g),
		Notifications: sqlstore.NewNotifications(g),
		Close: func() error {
			sqlDB, err := g.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// NewDeps opens everything from the loaded configuration
func NewDeps(ctx context.Context) (*Deps, error) {
	secrets, err := NewSecrets(ctx)
	if err != nil {
		return nil, err
	}

	stores, err := OpenStores(ctx, secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database, %w", viper.GetString("database.driver"), err)
	}

	var mailPassword string
	if viper.GetString("secrets.provider") != "config" || viper.GetString("secrets.values.mail") != "" {
		mailPassword, err = secrets.Get(ctx, SecretName("mail"))
		if err != nil {
			return nil, fmt.Errorf("failed to load mail credentials, %w", err)
		}
	}

	mailer := service.NewSMTPMailer(
		viper.GetString("mail.host"),
		viper.GetInt("mail.port"),
		viper.GetString("mail.sender"),
		mailPassword,
		viper.GetDuration("mail.timeout"),
	)

	return Assemble(Options{
		Stores:          *stores,
		Secrets:         secrets,
		Mailer:          mailer,
		HashConcurrency: viper.GetInt64("security.hash_concurrency"),
	}), nil
}
