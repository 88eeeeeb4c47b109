// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper fron a config file or environement variables.
type Config struct {
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenKind           string        `mapstructure:"TOKEN_KIND"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	Environement        string        `mapstructure:"GO_ENV"`

	LedgerScale        int32         `mapstructure:"LEDGER_SCALE"`
	LedgerMaxRetries   int           `mapstructure:"LEDGER_MAX_RETRIES"`
	LedgerRetryBackoff time.Duration `mapstructure:"LEDGER_RETRY_BACKOFF"`

	CommissionRate        string `mapstructure:"COMMISSION_RATE"`
	CommissionDesignation string `mapstructure:"COMMISSION_DESIGNATION"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Brokers returns the comma separated KAFKA_BROKERS as a list.
func (c Config) Brokers() []string {
	var brokers []string

	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return brokers
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("TOKEN_KIND", "paseto")
	v.SetDefault("ACCESS_TOKEN_DURATION", 15*time.Minute)
	v.SetDefault("GO_ENV", "production")
	v.SetDefault("LEDGER_SCALE", 2)
	v.SetDefault("LEDGER_MAX_RETRIES", 3)
	v.SetDefault("LEDGER_RETRY_BACKOFF", 10*time.Millisecond)
	v.SetDefault("COMMISSION_RATE", "0.10")
	v.SetDefault("COMMISSION_DESIGNATION", "agent")
	v.SetDefault("KAFKA_TOPIC", "payment.completed")
	v.SetDefault("KAFKA_GROUP_ID", "wallet-ledger-commission")
}

// Default returns the configuration made of defaults only.
func Default() Config {
	var c Config

	v := viper.New()
	setDefaults(v)

	_ = v.Unmarshal(&c) // defaults always decode

	return c
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
